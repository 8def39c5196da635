package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	styles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/kyaoi/sizetree/internal/opener"
	"github.com/kyaoi/sizetree/internal/scan"
	"github.com/kyaoi/sizetree/internal/store"
	"github.com/kyaoi/sizetree/internal/tree"
)

const (
	footerHeight      = 1
	minContentWidth   = 20
	minTreePanelWidth = 18
	defaultTreeWidth  = 48
)

// Model implements the Bubble Tea program for the storage browser. The
// selected path and the expanded folders live in the shared store; the model
// only derives rows from them and re-derives whenever either cell notifies.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	store   *store.Store
	logger  *slog.Logger
	open    func(string) error
	changes <-chan string

	contentVP          viewport.Model
	treeVP             viewport.Model
	renderer           *glamour.TermRenderer
	detailsVisible     bool
	treePreferredWidth int
	treeFocus          bool
	showHelp           bool
	pendingKey         string
	ready              bool
	width              int
	height             int
	err                error

	rootPath     string
	displayRoot  string
	sortMode     tree.SortMode
	scanOpts     scan.Options
	tree         *tree.Tree
	flatTree     []tree.Line
	cursor       int
	dirty        bool
	detailsFor   string
	scanning     int
	scannedFiles int64
	progressChan chan int64

	searchInput   textinput.Model
	searchActive  bool
	searchQuery   string
	searchMatches []string
	searchIndex   int

	unsubscribe []func()
}

type scanDoneMsg struct {
	path    string
	node    *scan.Node
	err     error
	elapsed time.Duration
}

type scanProgressMsg struct {
	files int64
}

type dirChangedMsg struct {
	dir string
}

// NewModel constructs the browser model. Scanning starts from Init.
func NewModel(state State, deps Deps) *Model {
	ctx := deps.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	open := deps.Open
	if open == nil {
		open = opener.Open
	}
	st := deps.Store
	if st == nil {
		st = store.New()
	}

	contentVP := viewport.New(0, 0)
	contentVP.Style = lipgloss.NewStyle().Padding(0, 1)

	treeVP := viewport.New(0, 0)
	treeVP.Style = treePanelStyle(treeBlurBorderColor)
	treeVP.MouseWheelEnabled = false

	displayRoot := state.DisplayRoot
	if displayRoot == "" {
		displayRoot = filepath.Base(state.RootPath)
	}

	m := &Model{
		ctx:                ctx,
		cancel:             cancel,
		store:              st,
		logger:             logger,
		open:               open,
		changes:            deps.Changes,
		contentVP:          contentVP,
		treeVP:             treeVP,
		detailsVisible:     true,
		treePreferredWidth: state.TreePreferredWidth,
		rootPath:           state.RootPath,
		displayRoot:        displayRoot,
		sortMode:           state.Sort,
		scanOpts:           state.Scan,
		progressChan:       make(chan int64, 1),
		searchIndex:        -1,
		dirty:              true,
	}
	m.scanOpts.OnProgress = m.reportProgress

	searchInput := textinput.New()
	searchInput.Prompt = "/"
	searchInput.CharLimit = 256
	searchInput.Placeholder = "name"
	searchInput.CursorEnd()
	searchInput.Blur()
	m.searchInput = searchInput

	m.unsubscribe = append(m.unsubscribe,
		st.Selected.Subscribe(func(string) { m.dirty = true }),
		st.Expanded.Subscribe(func(store.PathSet) { m.dirty = true }),
	)

	m.focusTree()
	m.sync()
	return m
}

// Close cancels running scans and drops the store subscriptions.
func (m *Model) Close() {
	m.cancel()
	for _, unsubscribe := range m.unsubscribe {
		unsubscribe()
	}
	m.unsubscribe = nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(m.rootPath), m.waitForProgress(), m.waitForChange())
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.showHelp {
		helpOverlay := helpBoxStyle.Render(helpText)
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, helpOverlay)
		}
		return helpOverlay
	}

	body := m.treeVP.View()
	if m.detailsVisible {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.contentVP.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer())
}

const helpText = `Help (? / Esc to close)
j / k            : move selection
Ctrl+d / Ctrl+u  : half page down / up
gg / G           : first / last row
l / Enter        : expand folder, step into it, or open a file
h                : collapse folder or go to parent
Space            : toggle folder
E                : expand everything below the selection
c                : collapse all
s                : sort by size / name
r                : rescan the selected folder
o                : open with the default application
/  n / N         : search names, next / previous hit
Ctrl+h / Ctrl+l  : focus tree / details
t                : show or hide details
q / Ctrl+c       : quit`

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.sync()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case scanDoneMsg:
		m.handleScanDone(msg)
		return nil
	case scanProgressMsg:
		m.scannedFiles = msg.files
		m.dirty = true
		return m.waitForProgress()
	case dirChangedMsg:
		return tea.Batch(m.handleDirChange(msg.dir), m.waitForChange())
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.treeFocus {
		return nil
	}
	var cmd tea.Cmd
	m.contentVP, cmd = m.contentVP.Update(msg)
	return cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.searchActive {
		switch msg.Type {
		case tea.KeyEnter:
			query := strings.TrimSpace(m.searchInput.Value())
			m.exitSearchMode()
			if query == "" {
				m.clearSearch()
				return nil
			}
			m.performSearch(query)
			return nil
		case tea.KeyEsc, tea.KeyCtrlC:
			m.exitSearchMode()
			return nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return cmd
	}

	key := msg.String()
	if key != "g" {
		m.pendingKey = ""
	}

	if m.showHelp {
		switch key {
		case "q", "?", "esc":
			m.showHelp = false
		}
		return nil
	}

	switch key {
	case "q", "ctrl+c":
		m.Close()
		return tea.Quit
	case "?":
		m.showHelp = true
		return nil
	case "ctrl+h":
		m.focusTree()
		return nil
	case "ctrl+l":
		if m.detailsVisible {
			m.blurTree()
		}
		return nil
	case "t":
		m.detailsVisible = !m.detailsVisible
		if !m.detailsVisible {
			m.focusTree()
		}
		m.resize(m.width, m.height)
		return nil
	case "/":
		return m.enterSearchMode()
	case "n":
		if len(m.searchMatches) > 0 {
			m.nextSearchMatch()
			return nil
		}
	case "N":
		if len(m.searchMatches) > 0 {
			m.previousSearchMatch()
			return nil
		}
	case "s":
		m.toggleSort()
		return nil
	case "r":
		return m.rescanSelected()
	case "o":
		m.openSelected()
		return nil
	}

	if m.treeFocus {
		return m.handleTreeKey(key)
	}
	if m.handleContentKey(key) {
		return nil
	}
	var cmd tea.Cmd
	m.contentVP, cmd = m.contentVP.Update(msg)
	return cmd
}

func (m *Model) handleContentKey(key string) bool {
	switch key {
	case "j", "down":
		m.contentVP.ScrollDown(1)
	case "k", "up":
		m.contentVP.ScrollUp(1)
	case "ctrl+d":
		m.contentVP.HalfPageDown()
	case "ctrl+u":
		m.contentVP.HalfPageUp()
	case "g":
		if m.pendingKey == "g" {
			m.contentVP.GotoTop()
			m.pendingKey = ""
		} else {
			m.pendingKey = "g"
		}
		return true
	case "G":
		m.contentVP.GotoBottom()
	default:
		return false
	}
	m.pendingKey = ""
	return true
}

func (m *Model) handleTreeKey(key string) tea.Cmd {
	if m.tree == nil {
		return nil
	}
	switch key {
	case "j", "down":
		m.moveSelection(1)
	case "k", "up":
		m.moveSelection(-1)
	case "ctrl+d":
		m.moveSelection(max(1, m.treeVP.Height/2))
	case "ctrl+u":
		m.moveSelection(-max(1, m.treeVP.Height/2))
	case "ctrl+j":
		m.contentVP.ScrollDown(1)
	case "ctrl+k":
		m.contentVP.ScrollUp(1)
	case "ctrl+f":
		m.contentVP.ScrollDown(max(1, m.contentVP.Height/2))
	case "ctrl+b":
		m.contentVP.ScrollUp(max(1, m.contentVP.Height/2))
	case "l", "right", "enter":
		m.openOrDescend()
	case "h", "left":
		m.closeOrAscend()
	case " ", "space":
		if node := m.currentNode(); node != nil && node.IsDir {
			m.store.Expanded.Toggle(node.Path)
		}
	case "E":
		m.expandSubtree()
	case "c":
		m.collapseAll()
	case "g":
		if m.pendingKey == "g" {
			m.pendingKey = ""
			m.selectIndex(0)
		} else {
			m.pendingKey = "g"
		}
	case "G":
		m.selectIndex(len(m.flatTree) - 1)
	}
	return nil
}

func (m *Model) handleScanDone(msg scanDoneMsg) {
	if m.scanning > 0 {
		m.scanning--
	}
	m.dirty = true
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return
		}
		m.err = msg.err
		m.logger.Error("scan failed", "path", msg.path, "err", msg.err)
		return
	}

	m.logger.Info("scan finished",
		"path", msg.path,
		"files", msg.node.FileCount,
		"bytes", msg.node.Size,
		"elapsed", msg.elapsed)
	m.detailsFor = ""

	if m.tree == nil {
		m.tree = tree.New(msg.node, m.sortMode)
		root := msg.node.Path
		m.rootPath = root
		m.store.Expanded.Add(root)
		if _, ok := m.store.Selected.Get(); !ok {
			m.store.Selected.Set(root)
		}
		return
	}
	if err := m.tree.Replace(msg.path, msg.node); err != nil {
		m.logger.Debug("rescan result dropped", "path", msg.path, "err", err)
	}
}

func (m *Model) handleDirChange(dir string) tea.Cmd {
	if m.tree == nil {
		return nil
	}
	node := m.tree.Find(dir)
	if node == nil || !node.IsDir {
		return nil
	}
	m.logger.Debug("folder changed", "dir", dir)
	return m.scanCmd(dir)
}

func (m *Model) scanCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	m.scanning++
	m.dirty = true
	opts := m.scanOpts
	ctx := m.ctx
	m.logger.Info("scan started", "path", path)
	return func() tea.Msg {
		start := time.Now()
		node, err := scan.New(opts).Scan(ctx, path)
		return scanDoneMsg{path: path, node: node, err: err, elapsed: time.Since(start)}
	}
}

func (m *Model) reportProgress(files int64) {
	select {
	case m.progressChan <- files:
	default:
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case files := <-ch:
			return scanProgressMsg{files: files}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		dir, ok := <-ch
		if !ok {
			return nil
		}
		return dirChangedMsg{dir: dir}
	}
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= footerHeight {
		return
	}

	m.width = width
	m.height = height
	m.ready = true

	treeWidth := m.treeWidth(width)
	paneHeight := max(height-footerHeight, 1)
	m.treeVP.Width = treeWidth
	m.treeVP.Height = paneHeight

	contentWidth := 0
	if m.detailsVisible {
		contentWidth = max(width-treeWidth, minContentWidth)
	}
	m.contentVP.Width = contentWidth
	m.contentVP.Height = paneHeight

	wrapWidth := max(contentWidth-m.contentVP.Style.GetHorizontalFrameSize(), 0)
	renderer, err := newRenderer(wrapWidth)
	if err != nil {
		m.err = err
		return
	}
	m.renderer = renderer
	m.detailsFor = ""
	m.dirty = true
}

func (m *Model) treeWidth(totalWidth int) int {
	if !m.detailsVisible {
		return totalWidth
	}
	preferred := m.treePreferredWidth
	if preferred <= 0 {
		preferred = defaultTreeWidth
	}

	frame := m.treeVP.Style.GetHorizontalFrameSize()
	minPanel := max(minTreePanelWidth-frame, 0)
	maxPanel := max(totalWidth*2/3-frame, minPanel)
	width := clamp(preferred, minPanel, maxPanel) + frame
	if totalWidth-width < minContentWidth {
		width = max(totalWidth-minContentWidth, 0)
	}
	return min(width, totalWidth)
}

// sync re-derives the visible rows after either store cell changed.
func (m *Model) sync() {
	if !m.dirty {
		return
	}
	m.dirty = false

	if m.tree == nil {
		m.flatTree = nil
		m.treeVP.SetContent(m.placeholder())
		return
	}

	m.flatTree = m.tree.Flatten(m.store.Expanded.Get())
	selected, _ := m.store.Selected.Get()
	idx := m.indexForPath(selected)
	if idx < 0 {
		fallback := m.visibleAncestor(selected)
		m.store.Selected.Set(fallback)
		m.dirty = false
		idx = m.indexForPath(fallback)
	}
	m.cursor = max(idx, 0)
	m.updateTreeContent()
	m.updateDetails()
}

func (m *Model) placeholder() string {
	if m.err != nil {
		return "Nothing to show."
	}
	return fmt.Sprintf("Scanning %s…\n%s files", m.displayRoot, humanize.Comma(m.scannedFiles))
}

// visibleAncestor returns the closest visible row enclosing path, falling
// back to the root.
func (m *Model) visibleAncestor(path string) string {
	for p := path; p != ""; {
		if m.indexForPath(p) >= 0 {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	return m.tree.Root().Path
}

func (m *Model) indexForPath(path string) int {
	if path == "" {
		return -1
	}
	for i, line := range m.flatTree {
		if line.Node.Path == path {
			return i
		}
	}
	return -1
}

func (m *Model) currentNode() *scan.Node {
	if m.cursor < 0 || m.cursor >= len(m.flatTree) {
		return nil
	}
	return m.flatTree[m.cursor].Node
}

func (m *Model) selectIndex(idx int) {
	if len(m.flatTree) == 0 {
		return
	}
	idx = clamp(idx, 0, len(m.flatTree)-1)
	m.store.Selected.Set(m.flatTree[idx].Node.Path)
}

func (m *Model) moveSelection(delta int) {
	m.selectIndex(m.cursor + delta)
}

func (m *Model) openOrDescend() {
	node := m.currentNode()
	if node == nil {
		return
	}
	if !node.IsDir {
		m.openSelected()
		return
	}
	if !m.store.Expanded.Has(node.Path) {
		m.store.Expanded.Add(node.Path)
		return
	}
	if len(node.Children) > 0 {
		m.store.Selected.Set(node.Children[0].Path)
	}
}

func (m *Model) closeOrAscend() {
	node := m.currentNode()
	if node == nil {
		return
	}
	if node.IsDir && m.store.Expanded.Has(node.Path) {
		m.store.Expanded.Delete(node.Path)
		return
	}
	if parent := m.tree.Parent(node.Path); parent != "" {
		m.store.Selected.Set(parent)
	}
}

func (m *Model) expandSubtree() {
	node := m.currentNode()
	if node == nil || !node.IsDir {
		return
	}
	var dirs []string
	var walk func(*scan.Node)
	walk = func(n *scan.Node) {
		if !n.IsDir {
			return
		}
		dirs = append(dirs, n.Path)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	m.store.Expanded.AddAll(dirs...)
}

func (m *Model) collapseAll() {
	m.store.Expanded.Clear()
	m.store.Expanded.Add(m.tree.Root().Path)
}

func (m *Model) toggleSort() {
	m.sortMode = m.sortMode.Next()
	if m.tree != nil {
		m.tree.Sort(m.sortMode)
	}
	m.detailsFor = ""
	m.dirty = true
}

func (m *Model) rescanSelected() tea.Cmd {
	node := m.currentNode()
	if node == nil {
		return nil
	}
	dir := node.Path
	if !node.IsDir {
		dir = m.tree.Parent(node.Path)
	}
	return m.scanCmd(dir)
}

func (m *Model) openSelected() {
	node := m.currentNode()
	if node == nil {
		return
	}
	if err := m.open(node.Path); err != nil {
		m.err = err
		m.logger.Warn("open failed", "path", node.Path, "err", err)
		return
	}
	m.err = nil
}

func (m *Model) updateTreeContent() {
	width := m.treeVP.Width - m.treeVP.Style.GetHorizontalFrameSize()
	if width <= 0 {
		width = minTreePanelWidth
	}
	var builder strings.Builder
	for i, line := range m.flatTree {
		text := formatTreeLine(line, m.parentSize(line.Node), width)
		switch {
		case i == m.cursor && m.treeFocus:
			builder.WriteString(treeSelectedActive.Render(text))
		case i == m.cursor:
			builder.WriteString(treeSelectedInactive.Render(text))
		case line.Node.Err != "":
			builder.WriteString(treeErrorLineStyle.Render(text))
		default:
			builder.WriteString(treeLineStyle.Render(text))
		}
		if i < len(m.flatTree)-1 {
			builder.WriteByte('\n')
		}
	}
	m.treeVP.SetContent(builder.String())
	m.ensureSelectionVisible()
}

func (m *Model) updateDetails() {
	node := m.currentNode()
	if node == nil || m.renderer == nil || node.Path == m.detailsFor {
		return
	}
	doc := detailsMarkdown(node, m.parentSize(node), composeDisplayPath(m.displayRoot, m.tree.Root().Path, node.Path))
	rendered, err := m.renderer.Render(doc)
	if err != nil {
		m.err = err
		return
	}
	m.detailsFor = node.Path
	m.contentVP.SetContent(rendered)
	m.contentVP.GotoTop()
}

func (m *Model) parentSize(node *scan.Node) int64 {
	parent := m.tree.Find(m.tree.Parent(node.Path))
	if parent == nil {
		return node.Size
	}
	return parent.Size
}

func (m *Model) ensureSelectionVisible() {
	if len(m.flatTree) == 0 || m.treeVP.Height == 0 {
		return
	}
	if m.cursor < m.treeVP.YOffset {
		m.treeVP.SetYOffset(m.cursor)
		return
	}
	bottom := m.treeVP.YOffset + m.treeVP.Height - 1
	if m.cursor > bottom {
		m.treeVP.SetYOffset(m.cursor - m.treeVP.Height + 1)
	}
}

func (m *Model) focusTree() {
	m.treeFocus = true
	m.updateTreePanelStyle()
	m.dirty = true
}

func (m *Model) blurTree() {
	m.treeFocus = false
	m.updateTreePanelStyle()
	m.dirty = true
}

func (m *Model) updateTreePanelStyle() {
	color := treeBlurBorderColor
	if m.treeFocus {
		color = treeFocusBorderColor
	}
	m.treeVP.Style = treePanelStyle(color)
}

func (m *Model) footer() string {
	var line string
	style := statusBarStyle
	switch {
	case m.searchActive:
		line = m.searchInput.View()
	case m.err != nil:
		line = m.err.Error()
		style = errorLineStyle
	case m.searchQuery != "":
		line = m.searchStatusLine()
	default:
		line = m.statusLine()
	}
	if m.width > 0 {
		line = ansi.Truncate(line, max(m.width-style.GetHorizontalFrameSize(), 0), "…")
		style = style.Width(m.width)
	}
	return style.Render(line)
}

func (m *Model) statusLine() string {
	parts := []string{m.displayRoot}
	if node := m.currentNode(); node != nil && m.tree != nil {
		parts = append(parts,
			composeDisplayPath(m.displayRoot, m.tree.Root().Path, node.Path),
			humanize.IBytes(uint64(max(node.Size, 0))))
		if node.IsDir {
			parts = append(parts, humanize.Comma(int64(node.FileCount))+" files")
		}
	}
	parts = append(parts, "sort: "+m.sortMode.String())
	if m.scanning > 0 {
		parts = append(parts, "scanning…")
	}
	return strings.Join(parts, " · ")
}

func composeDisplayPath(displayRoot, rootPath, path string) string {
	rel, err := filepath.Rel(rootPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	if rel == "." {
		return displayRoot + "/"
	}
	return filepath.ToSlash(filepath.Join(displayRoot, rel))
}

func newRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.TokyoNightStyle),
		glamour.WithWordWrap(width),
	)
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
