package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"csvchat/internal/config"
	"csvchat/internal/dataset"
	"csvchat/internal/history"
	"csvchat/internal/pipeline"
	"csvchat/internal/session"
)

type view int

const (
	fileView view = iota
	keyView
	chatView
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)
	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	requestStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type model struct {
	sess          *session.Session
	pipeline      *pipeline.Pipeline
	currentView   view
	pathInput     textinput.Model
	keyInput      textinput.Model
	queryInput    textinput.Model
	viewport      viewport.Model
	rendered      []string
	maxUpload     int64
	lastSQL       string
	width         int
	height        int
	loading       bool
	notice        string
	err           error
	viewportReady bool
}

type uploadMsg struct {
	data *dataset.Dataset
	err  error
}

type replyMsg struct {
	reply pipeline.Reply
	err   error
}

func loadCSV(sess *session.Session, location string, maxBytes int64) tea.Cmd {
	return func() tea.Msg {
		data, err := uploadFrom(context.Background(), sess, location, maxBytes)
		return uploadMsg{data: data, err: err}
	}
}

// uploadFrom loads a CSV path, URL or zip archive into sess.
func uploadFrom(ctx context.Context, sess *session.Session, location string, maxBytes int64) (*dataset.Dataset, error) {
	src, name, err := dataset.OpenSource(ctx, location, maxBytes)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return sess.Upload(ctx, name, src)
}

func submitQuery(p *pipeline.Pipeline, sess *session.Session, request string) tea.Cmd {
	return func() tea.Msg {
		reply, err := p.Submit(context.Background(), sess, request)
		return replyMsg{reply: reply, err: err}
	}
}

func initialModel(sess *session.Session, p *pipeline.Pipeline) model {
	pi := textinput.New()
	pi.Placeholder = "Path or URL of a CSV file..."
	pi.CharLimit = 400
	pi.Width = 60

	ki := textinput.New()
	ki.Placeholder = "API key"
	ki.EchoMode = textinput.EchoPassword
	ki.EchoCharacter = '•'
	ki.CharLimit = 400
	ki.Width = 60

	qi := textinput.New()
	qi.Placeholder = "Ask a question about your data..."
	qi.CharLimit = 500
	qi.Width = 60

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	m := model{
		sess:       sess,
		pipeline:   p,
		pathInput:  pi,
		keyInput:   ki,
		queryInput: qi,
		viewport:   vp,
	}
	m.setView(m.nextView())
	return m
}

// nextView picks the first step the session still needs.
func (m model) nextView() view {
	switch {
	case m.sess.Dataset() == nil:
		return fileView
	case m.sess.APIKey() == "":
		return keyView
	default:
		return chatView
	}
}

func (m *model) setView(v view) {
	m.currentView = v
	m.pathInput.Blur()
	m.keyInput.Blur()
	m.queryInput.Blur()
	switch v {
	case fileView:
		m.pathInput.Focus()
	case keyView:
		m.keyInput.Focus()
	default:
		m.queryInput.Focus()
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header, input box, status line and help text
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 10
		if m.viewport.Height < 3 {
			m.viewport.Height = 3
		}
		m.viewportReady = true
		m.rerender()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case uploadMsg:
		m.loading = false
		if msg.err != nil {
			m.err = fmt.Errorf("failed to load CSV: %w", msg.err)
			if logger != nil {
				logger.Error("CSV load failed", "error", msg.err, "path", m.pathInput.Value())
			}
			return m, nil
		}
		m.err = nil
		m.notice = fmt.Sprintf("Loaded %s: %d rows, %d columns", msg.data.Name, msg.data.RowCount(), len(msg.data.Columns))
		m.pathInput.SetValue("")
		m.setView(m.nextView())
		if logger != nil {
			logger.Info("CSV loaded", "file", msg.data.Name, "rows", msg.data.RowCount())
		}
		return m, nil

	case replyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.notice = msg.reply.Notice
		if msg.reply.Entry != nil {
			m.lastSQL = msg.reply.Entry.SQL
			m.rendered = append(m.rendered, renderEntry(*msg.reply.Entry, m.width))
			m.viewport.SetContent(strings.Join(m.rendered, "\n"))
			m.viewport.GotoBottom()
		}
		if msg.reply.Status == pipeline.StatusNoAPIKey {
			m.setView(keyView)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.currentView {
	case fileView:
		m.pathInput, cmd = m.pathInput.Update(msg)
	case keyView:
		m.keyInput, cmd = m.keyInput.Update(msg)
	default:
		m.queryInput, cmd = m.queryInput.Update(msg)
	}
	return m, cmd
}

func (m model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		if m.currentView != chatView && m.sess.Dataset() != nil && m.sess.APIKey() != "" {
			m.setView(chatView)
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyCtrlO:
		m.setView(fileView)
		return m, nil

	case tea.KeyCtrlK:
		m.setView(keyView)
		return m, nil

	case tea.KeyCtrlY:
		if m.lastSQL != "" {
			if err := clipboard.WriteAll(m.lastSQL); err != nil {
				m.err = fmt.Errorf("clipboard: %w", err)
			} else {
				m.notice = "Copied SQL to clipboard"
			}
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		if m.loading {
			return m, nil
		}
		switch m.currentView {
		case fileView:
			path := strings.TrimSpace(m.pathInput.Value())
			if path == "" {
				return m, nil
			}
			m.loading = true
			m.notice = ""
			return m, loadCSV(m.sess, path, m.maxUpload)
		case keyView:
			m.sess.SetAPIKey(strings.TrimSpace(m.keyInput.Value()))
			m.keyInput.SetValue("")
			m.setView(m.nextView())
			return m, nil
		default:
			// the question stays in the box so it can be edited and resent
			request := m.queryInput.Value()
			if strings.TrimSpace(request) == "" {
				return m, nil
			}
			m.loading = true
			m.notice = ""
			return m, submitQuery(m.pipeline, m.sess, request)
		}
	}

	switch m.currentView {
	case fileView:
		m.pathInput, cmd = m.pathInput.Update(msg)
	case keyView:
		m.keyInput, cmd = m.keyInput.Update(msg)
	default:
		m.queryInput, cmd = m.queryInput.Update(msg)
	}
	return m, cmd
}

// rerender redraws every transcript entry at the current width.
func (m *model) rerender() {
	entries := m.sess.History().Entries()
	m.rendered = m.rendered[:0]
	for _, e := range entries {
		m.rendered = append(m.rendered, renderEntry(e, m.width))
	}
	m.viewport.SetContent(strings.Join(m.rendered, "\n"))
	m.viewport.GotoBottom()
}

// renderEntry formats one transcript entry for the terminal.
func renderEntry(e history.Entry, width int) string {
	var b strings.Builder
	b.WriteString(requestStyle.Render("You: " + e.Request))
	b.WriteString("\n")

	sqlBlock := "```sql\n" + e.SQL + "\n```"
	if out, err := renderMarkdown(sqlBlock, width); err == nil {
		b.WriteString(out)
	} else {
		b.WriteString(e.SQL + "\n")
	}

	switch {
	case e.Kind == history.KindError:
		b.WriteString(errorStyle.Render(e.Response))
	case e.Result != nil && (e.Kind == history.KindTable || e.Kind == history.KindText):
		b.WriteString(history.TextBlock(e.Result))
		if chart := ResultChart(e.Result, width); chart != "" {
			b.WriteString("\n\n")
			b.WriteString(chart)
		}
	default:
		b.WriteString(e.Response)
	}
	b.WriteString("\n")
	return b.String()
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("📊 CSV Chat"))
	b.WriteString("\n")
	if d := m.sess.Dataset(); d != nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%s | %d rows | %s", d.Name, d.RowCount(), dataset.Summarize(d))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.currentView {
	case fileView:
		b.WriteString("Load a CSV file\n")
		b.WriteString(inputStyle.Render(m.pathInput.View()))
	case keyView:
		b.WriteString("Enter your API key\n")
		b.WriteString(inputStyle.Render(m.keyInput.View()))
	default:
		if m.viewportReady {
			b.WriteString(m.viewport.View())
			b.WriteString("\n")
		}
		b.WriteString(inputStyle.Render(m.queryInput.View()))
	}
	b.WriteString("\n")

	if m.loading {
		b.WriteString("Working...\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	help := "Enter: Submit | Ctrl+O: Load file | Ctrl+K: API key | Ctrl+Y: Copy SQL | Esc/Ctrl+C: Quit"
	b.WriteString(mutedStyle.Render(help))
	return b.String()
}

// launchTUI runs the terminal chat, preloading csvPath when given.
func launchTUI(cfg *config.Config, log *slog.Logger, csvPath string) error {
	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}
	sess := session.New(uuid.NewString(), pipeline.SessionOptions(cfg))
	defer sess.Close()
	sess.SetAPIKey(cfg.LLM.APIKey)

	if csvPath != "" {
		if _, err := uploadFrom(context.Background(), sess, csvPath, cfg.Server.MaxUploadBytes); err != nil {
			return fmt.Errorf("failed to load %s: %w", csvPath, err)
		}
	}

	m := initialModel(sess, p)
	m.maxUpload = cfg.Server.MaxUploadBytes
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := prog.Run(); err != nil {
		if logger != nil {
			logger.Error("TUI program failed", "error", err)
		}
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
