package models

import "encoding/json"

// StructuredData is the project metadata extracted by the backend.
type StructuredData struct {
	ProjectName            *string         `json:"project_name,omitempty"`
	ClientName             *string         `json:"client_name,omitempty"`
	AreaTotalM2            *float64        `json:"area_total_m2,omitempty"`
	LocalizacaoObra        *string         `json:"localizacao_obra,omitempty"`
	ListaMateriais         []string        `json:"lista_materiais,omitempty"`
	EspecificacoesTecnicas map[string]any  `json:"especificacoes_tecnicas,omitempty"`
	TipoConstrucao         *string         `json:"tipo_construcao,omitempty"`
	ResponsavelTecnico     *string         `json:"responsavel_tecnico,omitempty"`
	DataProjeto            *string         `json:"data_projeto,omitempty"`
	NumeroPavimentos       *int            `json:"numero_pavimentos,omitempty"`
	Observacoes            *string         `json:"observacoes,omitempty"`
	RawData                json.RawMessage `json:"raw_data,omitempty"`
}

// MemorialResult is the parsed response of the generation endpoint.
type MemorialResult struct {
	PagesProcessed        *int            `json:"pages_processed,omitempty"`
	ProcessingTimeSeconds *float64        `json:"processing_time_seconds,omitempty"`
	StructuredData        *StructuredData `json:"structured_data,omitempty"`
	Warnings              []string        `json:"warnings,omitempty"`
	MemorialText          string          `json:"memorial_text"`

	// Raw is the complete response body as received.
	Raw json.RawMessage `json:"-"`
}

// ErrorResponse is the error body returned by the generation endpoint.
// Detail is left untyped because validation failures carry a list.
type ErrorResponse struct {
	Detail    any    `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}
