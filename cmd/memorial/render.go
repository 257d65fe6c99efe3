package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/memorial-automator/client/internal/models"
)

// terminalRenderer prints view changes as plain lines. It only writes when
// something visible changed since the previous view.
type terminalRenderer struct {
	w       io.Writer
	state   models.ViewState
	file    string
	percent int
	notice  string
}

func newTerminalRenderer(w io.Writer) *terminalRenderer {
	return &terminalRenderer{w: w, state: models.ViewUpload}
}

func (r *terminalRenderer) Render(v models.View) {
	if v.Notice != "" && v.Notice != r.notice {
		fmt.Fprintf(r.w, "! %s\n", v.Notice)
	}
	r.notice = v.Notice

	switch v.State {
	case models.ViewUpload:
		name := ""
		if v.File != nil {
			name = v.File.Name
			if name != r.file {
				fmt.Fprintf(r.w, "Arquivo: %s (%s)\n", v.File.Name, v.File.FormattedSize)
			}
		}
		r.file = name
	case models.ViewProcessing:
		if r.state != models.ViewProcessing {
			r.percent = 0
			fmt.Fprintln(r.w, v.Progress.StatusText)
		}
		if v.Progress.Percent != r.percent {
			r.percent = v.Progress.Percent
			fmt.Fprintf(r.w, "[%-20s] %3d%% %s\n", bar(v.Progress.Percent), v.Progress.Percent, v.Progress.StatusText)
		}
	case models.ViewResult:
		if r.state != models.ViewResult && v.Result != nil {
			printResult(r.w, v.Result)
		}
	case models.ViewError:
		if r.state != models.ViewError {
			fmt.Fprintf(r.w, "Erro: %s\n", v.ErrorMessage)
		}
	}
	r.state = v.State
}

func bar(percent int) string {
	n := percent / 5
	return strings.Repeat("#", n)
}

func printResult(w io.Writer, res *models.ResultView) {
	fmt.Fprintf(w, "Páginas: %s  Tempo: %s  Projeto: %s  Área: %s\n", res.Pages, res.Time, res.Project, res.Area)
	if res.ShowWarnings {
		fmt.Fprintln(w, "Avisos:")
		for _, warning := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}
