package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Logo contains the ASCII art for the application
const Logo = `░█▀█░█▀█░▀█▀░░░█▀▀░█▀█░█▀▀░▀█▀░█▀█░█▀▄░█░█
░█▀█░█▀▀░░█░░░░█▀▀░█▀█░█░░░░█░░█░█░█▀▄░░█░
░▀░▀░▀░░░▀▀▀░░░▀░░░▀░▀░▀▀▀░░▀░░▀▀▀░▀░▀░░▀░`

// Theme is the Sky Blue palette shared by every terminal view.
var Theme = struct {
	Primary     lipgloss.Color // Sky Blue 400 #38BDF8
	PrimaryDark lipgloss.Color // Sky Blue 500 #0EA5E9
	Cyan        lipgloss.Color // Cyan 400 #22D3EE

	// Semantic colors, also used for HTTP methods
	Success lipgloss.Color // GET - Emerald 400 #34D399
	Error   lipgloss.Color // DELETE - Rose 400 #FB7185
	Warning lipgloss.Color // PUT - Amber 400 #FBBF24
	Info    lipgloss.Color // POST - Sky Blue 400 #38BDF8

	Text       lipgloss.Color // Slate 50 #F8FAFC
	TextMuted  lipgloss.Color // Slate 300 #CBD5E1
	TextSubtle lipgloss.Color // Slate 400 #94A3B8

	BorderSubtle lipgloss.Color // Slate 700 #334155

	LogoGradient      []string
	AnimationGradient []string
}{
	Primary:     lipgloss.Color("#38BDF8"),
	PrimaryDark: lipgloss.Color("#0EA5E9"),
	Cyan:        lipgloss.Color("#22D3EE"),

	Success: lipgloss.Color("#34D399"),
	Error:   lipgloss.Color("#FB7185"),
	Warning: lipgloss.Color("#FBBF24"),
	Info:    lipgloss.Color("#38BDF8"),

	Text:       lipgloss.Color("#F8FAFC"),
	TextMuted:  lipgloss.Color("#CBD5E1"),
	TextSubtle: lipgloss.Color("#94A3B8"),

	BorderSubtle: lipgloss.Color("#334155"),

	LogoGradient: []string{
		"#0EA5E9", // Sky Blue 500
		"#38BDF8", // Sky Blue 400
		"#7DD3FC", // Sky Blue 300
	},
	AnimationGradient: []string{
		"#22D3EE", // Cyan 400
		"#38BDF8", // Sky Blue 400
		"#60A5FA", // Blue 400
		"#818CF8", // Indigo 400
	},
}

var methodColors = map[string]lipgloss.Color{
	"GET":    Theme.Success,
	"POST":   Theme.PrimaryDark,
	"PUT":    Theme.Warning,
	"DELETE": Theme.Error,
	"PATCH":  Theme.Primary,
}

func methodColor(method string) lipgloss.Color {
	if color, ok := methodColors[strings.ToUpper(method)]; ok {
		return color
	}
	return Theme.TextMuted
}

// MethodStyle colors an HTTP method the way every view shows it.
func MethodStyle(method string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(methodColor(method)).Bold(true)
}

// MethodRGB returns the same method color as RGB components, for output
// that is not rendered through lipgloss.
func MethodRGB(method string) (r, g, b int) {
	_, _ = fmt.Sscanf(string(methodColor(method)), "#%02x%02x%02x", &r, &g, &b)
	return r, g, b
}

// RenderLogo paints the logo line by line with the logo gradient. Empty
// blocks (░) stay subtle.
func RenderLogo() string {
	lines := strings.Split(Logo, "\n")
	for i, line := range lines {
		var b strings.Builder
		for _, char := range line {
			if char == '░' {
				b.WriteString(lipgloss.NewStyle().Foreground(Theme.TextSubtle).Render(string(char)))
				continue
			}
			color := Theme.LogoGradient[i%len(Theme.LogoGradient)]
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(string(char)))
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// gradientText fills text letter by letter, cycling through the animation
// gradient as frame advances.
func gradientText(text string, frame int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}

	colors := Theme.AnimationGradient
	current := (frame / len(runes)) % len(colors)
	previous := (current - 1 + len(colors)) % len(colors)
	fill := frame % len(runes)

	var b strings.Builder
	for i, char := range runes {
		color := colors[previous]
		if i <= fill {
			color = colors[current]
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(char)))
	}
	return b.String()
}
