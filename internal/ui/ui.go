package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

const LinkColor = "#87CEEB"

// Message classes double as fraud risk classes so both share one palette.
const (
	ClassSuccess = "success"
	ClassInfo    = "info"
	ClassWarning = "warning"
	ClassDanger  = "danger"
)

var classColors = map[string]string{
	ClassSuccess: "2",
	ClassInfo:    "4",
	ClassWarning: "3",
	ClassDanger:  "1",
}

type UI struct {
	Out          io.Writer
	Err          io.Writer
	Output       *termenv.Output
	ErrOutput    *termenv.Output
	ColorEnabled bool
}

func New(out io.Writer, err io.Writer, mode ColorMode, disableColor bool) *UI {
	output := termenv.NewOutput(out)
	errOutput := termenv.NewOutput(err)

	return &UI{
		Out:          out,
		Err:          err,
		Output:       output,
		ErrOutput:    errOutput,
		ColorEnabled: shouldEnableColor(output, mode, disableColor),
	}
}

func shouldEnableColor(output *termenv.Output, mode ColorMode, disableColor bool) bool {
	if disableColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return output.ColorProfile() != termenv.Ascii
	}
}

func (u *UI) Errorf(format string, args ...any) {
	u.printf(u.Err, u.ErrOutput, ClassDanger, format, args...)
}

func (u *UI) Warnf(format string, args ...any) {
	u.printf(u.Err, u.ErrOutput, ClassWarning, format, args...)
}

func (u *UI) Infof(format string, args ...any) {
	u.printf(u.Out, u.Output, ClassInfo, format, args...)
}

func (u *UI) Successf(format string, args ...any) {
	u.printf(u.Out, u.Output, ClassSuccess, format, args...)
}

func (u *UI) printf(w io.Writer, output *termenv.Output, class string, format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintln(w, Paint(output, u.ColorEnabled, class, msg))
}

// Paint colours text with the palette entry for class. Unknown classes and
// disabled colour return text unchanged.
func Paint(output *termenv.Output, enabled bool, class string, text string) string {
	color, ok := classColors[class]
	if !enabled || output == nil || !ok {
		return text
	}
	return output.String(text).Foreground(output.Color(color)).String()
}

func ColorizeLink(output *termenv.Output, enabled bool, text string) string {
	if !enabled || output == nil {
		return text
	}
	return output.String(text).Foreground(output.Color(LinkColor)).String()
}

func NormalizeColorMode(value string) ColorMode {
	switch ColorMode(strings.ToLower(strings.TrimSpace(value))) {
	case ColorAlways:
		return ColorAlways
	case ColorNever:
		return ColorNever
	default:
		return ColorAuto
	}
}
