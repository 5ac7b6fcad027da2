// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/session"
	statsPkg "github.com/verte-zerg/examforge/internal/stats"
)

type screen int

const (
	screenQuiz screen = iota
	screenResult
	screenReview
)

type modal int

const (
	modalNone modal = iota
	modalSubmit
	modalExit
	modalJump
	modalReport
)

// maxOptionKeys is the number of options reachable by digit keys.
const maxOptionKeys = 9

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	chosenStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Options configures the quiz UI.
type Options struct {
	// Subject is the label shown in the header.
	Subject string
	// Previous holds earlier attempts for the footer summary.
	Previous []model.Attempt
}

// Model implements the Bubble Tea quiz UI.
type Model struct {
	machine *session.Machine
	opts    Options

	screen     screen
	modal      modal
	input      textinput.Model
	modalErr   string
	unanswered int

	timer  timer
	status string
	review viewport.Model

	width  int
	height int
}

// NewModel constructs a quiz UI over a live session.
func NewModel(machine *session.Machine, opts Options) *Model {
	input := textinput.New()
	input.CharLimit = 500
	input.Cursor.SetMode(cursor.CursorBlink)
	return &Model{
		machine: machine,
		opts:    opts,
		input:   input,
		review:  viewport.New(0, 0),
	}
}

// Result returns the completion once the session was submitted.
func (m *Model) Result() (model.Completion, bool) {
	return m.machine.Result()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.timer.start()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutReview()
		return m, nil
	case tickMsg:
		if !m.timer.accept(msg) {
			return m, nil
		}
		if err := m.machine.Tick(); err != nil {
			m.timer.stop()
			return m, nil
		}
		return m, tick(msg.gen)
	case tea.BlurMsg:
		m.timer.stop()
		return m, nil
	case tea.FocusMsg:
		if m.machine.State() == session.Active {
			return m, m.timer.start()
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.screen {
		case screenResult:
			return m.updateResult(msg)
		case screenReview:
			return m.updateReview(msg)
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		return m.updateQuiz(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	switch m.screen {
	case screenResult:
		return m.place(m.renderResult())
	case screenReview:
		return m.renderReviewScreen()
	}
	if m.modal != modalNone {
		return m.place(m.renderModal())
	}
	return m.renderQuiz()
}

func (m *Model) updateQuiz(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "left", "h":
		m.setErr(m.machine.Prev())
	case "right", "l":
		m.setErr(m.machine.Next())
	case "home":
		m.setErr(m.machine.Navigate(0))
	case "end":
		m.setErr(m.machine.Navigate(m.machine.Len() - 1))
	case "m":
		m.setErr(m.machine.ToggleReviewMark(m.machine.Position()))
	case "g":
		return m, m.openInput(modalJump, "Question: ")
	case "r":
		return m, m.openInput(modalReport, "Issue: ")
	case "s":
		return m.submit(false)
	case "q", "esc":
		m.modal = modalExit
	default:
		if idx, ok := optionIndex(key); ok {
			m.selectOption(idx)
		}
	}
	return m, nil
}

func (m *Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalSubmit:
		switch msg.String() {
		case "y", "enter":
			return m.submit(true)
		case "n", "esc":
			m.closeModal()
		}
		return m, nil
	case modalExit:
		switch msg.String() {
		case "y", "enter":
			return m, m.quit()
		case "n", "esc":
			m.closeModal()
		}
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.closeModal()
		return m, nil
	case tea.KeyEnter:
		m.applyInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "v":
		m.openReview()
	case "q", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenResult
		return m, nil
	case "g", "home":
		m.review.GotoTop()
		return m, nil
	case "G", "end":
		m.review.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)
	return m, cmd
}

func (m *Model) selectOption(idx int) {
	pos := m.machine.Position()
	q := m.machine.Question(pos)
	if idx >= len(q.Options) {
		return
	}
	m.setErr(m.machine.SelectOption(pos, q.Options[idx].ID))
}

func (m *Model) submit(force bool) (tea.Model, tea.Cmd) {
	_, err := m.machine.Submit(force)
	var warn *session.UnansweredWarning
	switch {
	case errors.As(err, &warn):
		m.unanswered = warn.Count
		m.modal = modalSubmit
		return m, nil
	case err != nil:
		m.closeModal()
		m.status = err.Error()
		return m, nil
	}
	m.timer.stop()
	m.closeModal()
	m.status = ""
	m.screen = screenResult
	return m, nil
}

func (m *Model) quit() tea.Cmd {
	if m.machine.State() == session.Active {
		if err := m.machine.Exit(); err != nil {
			// Exit only fails outside Active.
			_ = err
		}
	}
	m.timer.stop()
	return tea.Quit
}

func (m *Model) openInput(kind modal, prompt string) tea.Cmd {
	m.modal = kind
	m.modalErr = ""
	m.input.Prompt = prompt
	m.input.SetValue("")
	m.input.Width = maxInt(10, modalInnerWidth(m.width)-lipgloss.Width(prompt))
	return m.input.Focus()
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.modalErr = ""
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) applyInput() {
	value := strings.TrimSpace(m.input.Value())
	switch m.modal {
	case modalJump:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > m.machine.Len() {
			m.modalErr = fmt.Sprintf("enter a number from 1 to %d", m.machine.Len())
			return
		}
		m.setErr(m.machine.Navigate(n - 1))
	case modalReport:
		if err := m.machine.ReportIssue(m.machine.Position(), value); err != nil {
			m.modalErr = err.Error()
			return
		}
		m.status = "Issue reported, thank you."
	}
	m.closeModal()
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
}

func (m *Model) openReview() {
	m.screen = screenReview
	m.layoutReview()
	m.review.GotoTop()
}

func (m *Model) layoutReview() {
	m.review.Width = maxInt(1, m.width)
	m.review.Height = maxInt(1, m.height-1)
	if m.screen == screenReview {
		m.review.SetContent(renderReview(m.machine.Sequence(), m.machine.Answers(), m.contentWidth()))
	}
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return maxInt(20, int(float64(m.width)*0.70))
}

func (m *Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderQuiz() string {
	width := m.contentWidth()
	pos := m.machine.Position()
	q := m.machine.Question(pos)
	sections := []string{
		m.renderHeader(),
		"",
		questionStyle.Render(strings.Join(wrapText(q.Text, width), "\n")),
		"",
		m.renderOptions(q, pos, width),
		"",
		renderGrid(m.machine, width),
	}
	content := lipgloss.NewStyle().Width(width).Render(strings.Join(sections, "\n"))
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	footerHeight := lipgloss.Height(footer)
	bodyHeight := m.height - footerHeight
	if bodyHeight < 1 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerBlock := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerBlock
}

func (m *Model) renderHeader() string {
	pos := m.machine.Position()
	segments := []string{
		fmt.Sprintf("Q %d/%d", pos+1, m.machine.Len()),
		statsPkg.FormatDuration(m.machine.Elapsed()),
	}
	if m.opts.Subject != "" {
		segments = append(segments, m.opts.Subject)
	}
	header := mutedStyle.Render(strings.Join(segments, "  ·  "))
	if m.machine.IsMarked(pos) {
		header += "  " + markedCellStyle.Render("[marked]")
	}
	return header
}

func (m *Model) renderOptions(q model.Question, pos, width int) string {
	chosen, answered := m.machine.Answer(pos)
	var lines []string
	for i, opt := range q.Options {
		label := "-) "
		if i < maxOptionKeys {
			label = fmt.Sprintf("%d) ", i+1)
		}
		marker, style := "  ", pendingStyle
		if answered && opt.ID == chosen {
			marker, style = "› ", chosenStyle
		}
		for _, line := range hangingWrap(marker+label, opt.Text, width) {
			lines = append(lines, style.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	answered := m.machine.Len() - len(m.machine.Unanswered())
	segments := []string{fmt.Sprintf("Answered %d/%d", answered, m.machine.Len())}
	if n := len(m.opts.Previous); n > 0 {
		last := m.opts.Previous[n-1]
		segments = append(segments, fmt.Sprintf("Last %d%%", last.ScorePercent))
		d := statsPkg.BuildDashboard(m.opts.Previous)
		segments = append(segments, fmt.Sprintf("All-time %.1f%%", d.AverageScore))
	}
	lines := []string{
		footerStyle.Render(strings.Join(segments, "  ")),
		footerStyle.Render("←/→ move  1-9 answer  m mark  g go to  r report  s submit  q quit"),
	}
	if m.status != "" {
		lines = append([]string{chosenStyle.Render(m.status)}, lines...)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderModal() string {
	var body []string
	switch m.modal {
	case modalSubmit:
		body = []string{
			titleStyle.Render("Submit session?"),
			fmt.Sprintf("%d unanswered questions will count as skipped.", m.unanswered),
			mutedStyle.Render("y/enter: submit  n/esc: keep going"),
		}
	case modalExit:
		body = []string{
			titleStyle.Render("Leave session?"),
			"Progress stays saved and can be picked up with --resume.",
			mutedStyle.Render("y/enter: leave  n/esc: stay"),
		}
	case modalJump:
		body = []string{
			titleStyle.Render("Go to question"),
			m.input.View(),
			mutedStyle.Render(fmt.Sprintf("1-%d  enter: go  esc: cancel", m.machine.Len())),
		}
	case modalReport:
		body = []string{
			titleStyle.Render(fmt.Sprintf("Report an issue with Q%d", m.machine.Position()+1)),
			m.input.View(),
			mutedStyle.Render("enter: send  esc: cancel"),
		}
	}
	if m.modalErr != "" {
		body = append(body, incorrectStyle.Render(m.modalErr))
	}
	return modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
}

func (m *Model) renderResult() string {
	c, _ := m.machine.Result()
	lines := []string{titleStyle.Render("Session complete")}
	if m.opts.Subject != "" {
		lines = append(lines, mutedStyle.Render(m.opts.Subject))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Score: %d%%", c.ScorePercent),
		correctStyle.Render(fmt.Sprintf("Correct: %d", c.Correct))+"  "+
			incorrectStyle.Render(fmt.Sprintf("Incorrect: %d", c.Incorrect))+"  "+
			pendingStyle.Render(fmt.Sprintf("Skipped: %d", c.Skipped)),
		fmt.Sprintf("Time: %s", statsPkg.FormatDuration(c.TimeTakenSeconds)),
		"",
		mutedStyle.Render("enter/v: review answers  q: quit"),
	)
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderReviewScreen() string {
	help := footerStyle.Render("↑/↓ scroll  esc: back  q: quit")
	if m.width == 0 || m.height == 0 {
		return m.review.View() + "\n" + help
	}
	return m.review.View() + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, help)
}

func optionIndex(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	return int(key[0] - '1'), true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	if width <= 0 {
		return 60
	}
	return maxInt(40, minInt(width-4, 72))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width) - 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}
