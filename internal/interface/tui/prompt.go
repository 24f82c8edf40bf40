package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/neilberkman/wbaccel/internal/core/session"
	"golang.org/x/term"
)

var (
	// ErrNotTerminal means credentials are missing and stdin cannot be prompted
	ErrNotTerminal = errors.New("credentials missing and stdin is not a terminal; pass --server, --site, --username and --password")
	// ErrPromptCancelled means the user aborted the prompt
	ErrPromptCancelled = errors.New("sign-in cancelled")
)

type fieldKind int

const (
	fieldServer fieldKind = iota
	fieldSite
	fieldUsername
	fieldPassword
	fieldCert
)

type promptField struct {
	kind     fieldKind
	label    string
	required bool
	input    textinput.Model
}

type promptKeymap struct {
	Next, Cancel key.Binding
}

var promptKeys = promptKeymap{
	Next: key.NewBinding(
		key.WithKeys("enter", "tab"),
		key.WithHelp("enter", "next"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// promptModel asks, one field at a time, for whatever the request lacks
type promptModel struct {
	req       session.Request
	fields    []promptField
	help      help.Model
	current   int
	err       string
	done      bool
	cancelled bool
}

func newPromptModel(req session.Request) promptModel {
	m := promptModel{req: req, help: help.New()}
	if req.Server == "" {
		m.fields = append(m.fields, newField(fieldServer, "Server", "https://tableau.example.com", true))
	}
	if !req.SiteSet {
		m.fields = append(m.fields, newField(fieldSite, "Site", "empty for the Default site", false))
	}
	if req.Username == "" {
		m.fields = append(m.fields, newField(fieldUsername, "Username", "", true))
	}
	if req.Password == "" {
		f := newField(fieldPassword, "Password", "", true)
		f.input.EchoMode = textinput.EchoPassword
		f.input.EchoCharacter = '•'
		m.fields = append(m.fields, f)
	}
	if req.Server != "" {
		m.maybeAddCert()
	}
	if len(m.fields) == 0 {
		m.done = true
	} else {
		m.fields[0].input.Focus()
	}
	return m
}

func newField(kind fieldKind, label, placeholder string, required bool) promptField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 512
	ti.Width = 48
	return promptField{kind: kind, label: label, required: required, input: ti}
}

// maybeAddCert asks for a certificate only when the server speaks https
func (m *promptModel) maybeAddCert() {
	if m.req.TLSCertPath != "" || !models.IsHTTPS(models.NormalizeServerURL(m.req.Server)) {
		return
	}
	for _, f := range m.fields {
		if f.kind == fieldCert {
			return
		}
	}
	m.fields = append(m.fields, newField(fieldCert, "SSL certificate (PEM path)", "empty to skip verification", false))
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, promptKeys.Cancel):
		m.cancelled = true
		return m, tea.Quit

	case key.Matches(keyMsg, promptKeys.Next):
		field := &m.fields[m.current]
		value := strings.TrimSpace(field.input.Value())
		if field.required && value == "" {
			m.err = field.label + " is required"
			return m, nil
		}
		m.err = ""
		m.apply(field.kind, value)
		field.input.Blur()

		if field.kind == fieldServer {
			m.maybeAddCert()
		}

		m.current++
		if m.current >= len(m.fields) {
			m.done = true
			return m, tea.Quit
		}
		m.fields[m.current].input.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.fields[m.current].input, cmd = m.fields[m.current].input.Update(msg)
	return m, cmd
}

func (m *promptModel) apply(kind fieldKind, value string) {
	switch kind {
	case fieldServer:
		m.req.Server = value
	case fieldSite:
		m.req.Site = value
		m.req.SiteSet = true
	case fieldUsername:
		m.req.Username = value
	case fieldPassword:
		m.req.Password = value
	case fieldCert:
		m.req.TLSCertPath = value
	}
}

func (m promptModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in to Tableau Server"))
	b.WriteString("\n\n")

	for i, f := range m.fields {
		switch {
		case i < m.current:
			shown := f.input.Value()
			if f.kind == fieldPassword {
				shown = strings.Repeat("•", len(shown))
			}
			b.WriteString(doneStyle.Render(fmt.Sprintf("%s: %s", f.label, shown)))
		case i == m.current:
			b.WriteString(labelStyle.Render(f.label))
			b.WriteString("\n")
			b.WriteString(f.input.View())
		default:
			continue
		}
		b.WriteString("\n")
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.ShortHelpView([]key.Binding{promptKeys.Next, promptKeys.Cancel})))
	b.WriteString("\n")
	return b.String()
}

// CredentialPrompt is the interactive session.Prompter
type CredentialPrompt struct {
	in  *os.File
	out io.Writer
}

var _ session.Prompter = (*CredentialPrompt)(nil)

// NewCredentialPrompt prompts on stdin and draws on stderr so stdout stays
// clean for command output
func NewCredentialPrompt() *CredentialPrompt {
	return &CredentialPrompt{in: os.Stdin, out: os.Stderr}
}

// PromptCredentials asks for the fields req is missing
func (p *CredentialPrompt) PromptCredentials(req session.Request) (session.Request, error) {
	if !term.IsTerminal(int(p.in.Fd())) {
		return session.Request{}, ErrNotTerminal
	}

	model := newPromptModel(req)
	if model.done {
		return req, nil
	}

	final, err := tea.NewProgram(model, tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return session.Request{}, fmt.Errorf("prompt failed: %w", err)
	}

	m := final.(promptModel)
	if m.cancelled || !m.done {
		return session.Request{}, ErrPromptCancelled
	}
	return m.req, nil
}
