package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Messages holds every user-facing string. Defaults are the Portuguese
// texts of the original interface.
type Messages struct {
	SelectPDFFirst string `json:"selectPdfFirst" yaml:"select_pdf_first"`
	OnlyPDF        string `json:"onlyPdf" yaml:"only_pdf"`
	// FileTooLarge may contain {max}, replaced by the configured size limit.
	FileTooLarge     string   `json:"fileTooLarge" yaml:"file_too_large"`
	RequestFailed    string   `json:"requestFailed" yaml:"request_failed"`
	CopyFailed       string   `json:"copyFailed" yaml:"copy_failed"`
	Copied           string   `json:"copied" yaml:"copied"`
	SubmitInProgress string   `json:"submitInProgress" yaml:"submit_in_progress"`
	ProcessingStart  string   `json:"processingStart" yaml:"processing_start"`
	Steps            []string `json:"steps" yaml:"steps"`
}

// DefaultMessages returns the built-in catalog.
func DefaultMessages() Messages {
	return Messages{
		SelectPDFFirst:   "Por favor, selecione um arquivo PDF primeiro.",
		OnlyPDF:          "Por favor, selecione apenas arquivos PDF.",
		FileTooLarge:     "O arquivo é muito grande. Tamanho máximo: {max}",
		RequestFailed:    "Erro ao processar o arquivo",
		CopyFailed:       "Erro ao copiar. Por favor, selecione e copie manualmente.",
		Copied:           "Memorial copiado para a área de transferência!",
		SubmitInProgress: "Um processamento já está em andamento.",
		ProcessingStart:  "Iniciando processamento...",
		Steps: []string{
			"Fazendo upload...",
			"Extraindo dados do PDF...",
			"Analisando com IA...",
			"Gerando memorial...",
			"Revisando documento...",
		},
	}
}

// LoadMessages reads a YAML catalog on top of the defaults. An empty path
// returns the defaults.
func LoadMessages(path string) (Messages, error) {
	if path == "" {
		return DefaultMessages(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Messages{}, fmt.Errorf("failed to open messages file: %w", err)
	}
	defer f.Close()

	return LoadMessagesFromReader(f)
}

// LoadMessagesFromReader parses a YAML catalog from an io.Reader.
func LoadMessagesFromReader(r io.Reader) (Messages, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Messages{}, err
	}

	msgs := DefaultMessages()
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return Messages{}, fmt.Errorf("failed to parse messages file: %w", err)
	}
	if len(msgs.Steps) != len(DefaultMessages().Steps) {
		return Messages{}, fmt.Errorf("messages file must define %d steps, got %d", len(DefaultMessages().Steps), len(msgs.Steps))
	}
	return msgs, nil
}
