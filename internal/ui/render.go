package ui

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/gallery"
	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/media"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/terminal"
	"bokeh-viewer/internal/thumbnail"
)

// Grid tile geometry in terminal cells. Each text row shows two pixel rows.
const (
	tileWidth  = 16
	tileHeight = 8
	tileGap    = 2

	// bodyTop is the first row below the tab bar and the notice line.
	bodyTop = 3
	// prefetchRows is how many tile rows below the screen are warmed.
	prefetchRows = 2
)

type section struct {
	title  string
	photos []photo.Record
}

// gridLine is a section title or one row of tiles.
type gridLine struct {
	title  string
	start  int
	photos []photo.Record
}

func (l gridLine) height() int {
	if l.photos == nil {
		return 1
	}
	return tileHeight + 1
}

// layoutGrid flattens sections into lines of at most cols tiles. start is
// the index of a row's first photo across all sections.
func layoutGrid(sections []section, cols int) []gridLine {
	if cols < 1 {
		cols = 1
	}
	var lines []gridLine
	index := 0
	for _, s := range sections {
		if s.title != "" {
			lines = append(lines, gridLine{title: s.title})
		}
		for i := 0; i < len(s.photos); i += cols {
			end := i + cols
			if end > len(s.photos) {
				end = len(s.photos)
			}
			lines = append(lines, gridLine{start: index + i, photos: s.photos[i:end]})
		}
		index += len(s.photos)
	}
	return lines
}

// gridColumns returns how many tiles fit in width.
func gridColumns(width int) int {
	cols := (width + tileGap) / (tileWidth + tileGap)
	if cols < 1 {
		return 1
	}
	return cols
}

// Render draws the current view into a frame of width×height cells.
func (a *App) Render(ctx context.Context, width, height int) *terminal.Frame {
	f := terminal.NewFrame()
	if a.deps.Session.IsOpen() {
		a.renderViewer(ctx, f, width, height)
		return f
	}

	a.renderTabs(f, width)
	a.mu.Lock()
	busy := a.busy
	mode := a.mode
	a.mu.Unlock()

	if text := a.notice.Text(); text != "" {
		f.StyledText(2, 1, width, terminal.Bold, text)
	} else if busy != "" {
		f.StyledText(2, 1, width, terminal.Dim, busy)
	}

	bodyHeight := height - bodyTop
	switch mode {
	case ModeGrid:
		a.renderGrid(ctx, f, ModeGrid, []section{{photos: a.deps.Gallery.Photos()}}, width, bodyHeight)
	case ModeScope:
		a.renderGrid(ctx, f, ModeScope, a.scopeSections(), width, bodyHeight)
	case ModeYears:
		a.renderYears(f, width, bodyHeight)
	case ModeFolders:
		a.renderFolders(f, width, bodyHeight)
	case ModeJobs:
		a.renderJobs(f, width, bodyHeight)
	}

	f.StyledText(height, 1, width, terminal.Dim, footerHints(mode))
	return f
}

func sortLabel(srt gallery.Sort) string {
	field := "Date Taken"
	if srt.Field == api.SortCreatedAt {
		field = "Recently Added"
	}
	if srt.Descending() {
		return field + ", newest first"
	}
	return field + ", oldest first"
}

func footerHints(m Mode) string {
	switch m {
	case ModeJobs:
		return "↑/↓ select  x cancel  Enter confirm  s scan  a regenerate all  Esc back  q quit"
	case ModeYears, ModeFolders:
		return "↑/↓ select  Enter open  g grid  y years  f folders  j jobs  Esc back  q quit"
	}
	return "arrows move  Enter view  o order  t sort by  g grid  y years  f folders  j jobs  q quit"
}

func (a *App) renderTabs(f *terminal.Frame, width int) {
	mode := a.Mode()
	tabs := []struct {
		mode  Mode
		label string
	}{
		{ModeGrid, "Grid"},
		{ModeYears, "Years"},
		{ModeFolders, "Folders"},
		{ModeJobs, "Jobs"},
	}

	var b strings.Builder
	b.WriteString(terminal.Bold + "Bokeh" + terminal.ResetStyle + "  ")
	for _, t := range tabs {
		active := t.mode == mode || (mode == ModeScope && t.mode == a.scopeBack())
		if active {
			b.WriteString(terminal.Reverse + " " + t.label + " " + terminal.ResetStyle)
		} else {
			b.WriteString(" " + t.label + " ")
		}
	}

	status := a.deps.Jobs.Latest()
	srt := a.deps.Gallery.Sort()
	right := fmt.Sprintf("%s  %s", sortLabel(srt), jobs.ActiveJobsLabel(len(jobs.Active(status.Jobs))))
	if status.Err != nil {
		right += "  backend unreachable"
	}

	f.Text(1, 1, 0, b.String())
	if col := width - len([]rune(right)) + 1; col > 40 {
		f.StyledText(1, col, 0, terminal.Dim, right)
	}
}

func (a *App) scopeBack() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.back
}

func (a *App) renderGrid(ctx context.Context, f *terminal.Frame, mode Mode, sections []section, width, bodyHeight int) {
	cols := gridColumns(width)
	lines := layoutGrid(sections, cols)

	total := 0
	for _, s := range sections {
		total += len(s.photos)
	}

	a.mu.Lock()
	a.cols = cols
	cursor := clamp(a.cursor[mode], 0, total-1)
	a.cursor[mode] = cursor
	scroll := scrollTo(lines, cursorLine(lines, cursor), a.scroll[mode], bodyHeight)
	a.scroll[mode] = scroll
	a.mu.Unlock()

	if total == 0 {
		msg := "No photos"
		if mode == ModeGrid && !a.deps.Pages.Started() {
			msg = "Loading photos..."
		}
		f.Text(bodyTop, 1, width, msg)
		return
	}

	row := bodyTop
	last := scroll
	for i := scroll; i < len(lines); i++ {
		l := lines[i]
		if row+l.height() > bodyTop+bodyHeight {
			break
		}
		if l.photos == nil {
			f.StyledText(row, 1, width, terminal.Bold, l.title)
		} else {
			for j, p := range l.photos {
				a.renderTile(ctx, f, p, row, 1+j*(tileWidth+tileGap), l.start+j == cursor)
			}
		}
		row += l.height()
		last = i
	}

	if mode == ModeGrid && last >= len(lines)-1 && a.deps.Pages.HasMore() {
		a.loadMore(ctx)
	}
	a.prefetchAfter(ctx, lines, last)
}

// cursorLine returns the index of the line holding photo index cursor.
func cursorLine(lines []gridLine, cursor int) int {
	for i, l := range lines {
		if l.photos != nil && cursor >= l.start && cursor < l.start+len(l.photos) {
			return i
		}
	}
	return 0
}

// scrollTo returns the first visible line so that target is on screen,
// moving as little as possible from scroll. A section title directly above
// target stays visible when it fits.
func scrollTo(lines []gridLine, target, scroll, bodyHeight int) int {
	if len(lines) == 0 {
		return 0
	}
	top := target
	if top > 0 && lines[top-1].photos == nil {
		top--
	}
	if scroll > top {
		scroll = top
	}
	for scroll < target && span(lines, scroll, target) > bodyHeight {
		scroll++
	}
	if scroll < 0 {
		return 0
	}
	return scroll
}

// span returns the rows taken by lines from..to inclusive.
func span(lines []gridLine, from, to int) int {
	h := 0
	for i := from; i <= to && i < len(lines); i++ {
		h += lines[i].height()
	}
	return h
}

func (a *App) renderTile(ctx context.Context, f *terminal.Frame, p photo.Record, row, col int, selected bool) {
	img, state := a.images.get(ctx, a.thumbURL(p))
	switch state {
	case imageReady:
		f.Image(row, col, media.Preview(img, 0, tileWidth, tileHeight*2, 1))
	case imageFailed:
		f.Image(row, col, media.Placeholder(tileWidth, tileHeight*2))
	default:
		f.StyledText(row+tileHeight/2, col, tileWidth, terminal.Dim, "  loading...")
	}

	caption := p.Filename
	if p.IsFavorite {
		caption = "★ " + caption
	}
	if selected {
		f.StyledText(row+tileHeight, col, tileWidth, terminal.Reverse, caption)
	} else {
		f.Text(row+tileHeight, col, tileWidth, caption)
	}
}

// prefetchAfter warms the cache with the tile rows after line last.
func (a *App) prefetchAfter(ctx context.Context, lines []gridLine, last int) {
	if a.deps.Prefetch == nil {
		return
	}

	var urls []string
	rows := 0
	a.mu.Lock()
	for i := last + 1; i < len(lines) && rows < prefetchRows; i++ {
		if lines[i].photos == nil {
			continue
		}
		rows++
		for _, p := range lines[i].photos {
			u := a.thumbURL(p)
			if _, done := a.prefetched[u]; done {
				continue
			}
			a.prefetched[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 || a.prefetching {
		a.mu.Unlock()
		return
	}
	a.prefetching = true
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.deps.Prefetch.Prefetch(ctx, urls, a.deps.Workers)
		a.mu.Lock()
		a.prefetching = false
		a.mu.Unlock()
	}()
}

// renderList draws rows with the cursor highlighted, scrolled to keep it
// visible.
func (a *App) renderList(f *terminal.Frame, mode Mode, top int, rows []string, width, height int) {
	a.mu.Lock()
	cursor := clamp(a.cursor[mode], 0, len(rows)-1)
	scroll := a.scroll[mode]
	if cursor < scroll {
		scroll = cursor
	}
	if height > 0 && cursor >= scroll+height {
		scroll = cursor - height + 1
	}
	a.scroll[mode] = scroll
	a.mu.Unlock()

	for i := scroll; i < len(rows) && i-scroll < height; i++ {
		if i == cursor {
			f.StyledText(top+i-scroll, 1, width, terminal.Reverse, "> "+rows[i])
		} else {
			f.Text(top+i-scroll, 1, width, "  "+rows[i])
		}
	}
}

func (a *App) renderYears(f *terminal.Frame, width, height int) {
	a.mu.Lock()
	years := append([]api.YearSummary(nil), a.years...)
	a.mu.Unlock()

	if len(years) == 0 {
		f.Text(bodyTop, 1, width, "No years")
		return
	}
	rows := make([]string, len(years))
	for i, y := range years {
		rows[i] = fmt.Sprintf("%-6d %6d photos", y.Year, y.Count)
	}
	a.renderList(f, ModeYears, bodyTop, rows, width, height)
}

func (a *App) renderFolders(f *terminal.Frame, width, height int) {
	a.mu.Lock()
	folders := append([]folderRow(nil), a.folders...)
	a.mu.Unlock()

	if len(folders) == 0 {
		f.Text(bodyTop, 1, width, "No folders")
		return
	}
	rows := make([]string, len(folders))
	for i, r := range folders {
		rows[i] = fmt.Sprintf("%s%s/  %d photos (%d with subfolders)",
			strings.Repeat("  ", r.depth), r.node.Name, r.node.PhotoCount, r.node.RecursivePhotoCount)
	}
	a.renderList(f, ModeFolders, bodyTop, rows, width, height)
}

func (a *App) renderJobs(f *terminal.Frame, width, height int) {
	status := a.deps.Jobs.Latest()
	row := bodyTop

	if st := status.Stats; st != nil {
		line := fmt.Sprintf("Photos: %d   Library: %s   Disk: %s used, %s free (%.1f%%)",
			st.TotalPhotos, jobs.FormatBytes(st.TotalSize),
			jobs.FormatBytes(st.DiskUsage.Used), jobs.FormatBytes(st.DiskUsage.Available), st.DiskUsage.Percentage)
		if st.Version != "" {
			line += "   Backend " + st.Version
		}
		f.Text(row, 1, width, line)
	}
	row++

	if status.Err != nil {
		f.StyledText(row, 1, width, terminal.Bold, "Backend unreachable: "+status.Err.Error())
	}
	row++

	scan, regen := "[s] Scan library", "[a] Regenerate all thumbnails"
	if !jobs.CanStartScan(status.Jobs) {
		scan += " (running)"
	}
	if !jobs.CanRegenerateAll(status.Jobs) {
		regen += " (running)"
	}
	f.Text(row, 1, width, scan+"   "+regen)
	row += 2

	if len(status.Jobs) == 0 {
		f.Text(row, 1, width, "No active jobs")
		return
	}

	rows := make([]string, len(status.Jobs))
	for i, j := range status.Jobs {
		line := fmt.Sprintf("#%-5d %-28s %-9s %3.0f%%  %s", j.ID, jobs.Title(j), j.Status, j.Progress, jobs.Detail(j))
		if a.deps.Actions != nil && a.deps.Actions.Confirmations().Pending(j.ID) {
			line += "   Enter to confirm cancel, x to keep"
		}
		rows[i] = line
	}
	a.renderList(f, ModeJobs, row, rows, width, height-(row-bodyTop))
}

func (a *App) renderViewer(ctx context.Context, f *terminal.Frame, width, height int) {
	s := a.deps.Session
	if err := s.Err(); err != nil {
		a.notice.Set("Rotation failed: "+err.Error(), jobs.NoticeShort)
	}

	p, ok := s.Current()
	if !ok {
		f.Text(1, 1, width, "Photo not loaded")
		return
	}

	pos, total := s.Position()
	rot := s.Rotation()
	name := p.Filename
	if p.IsFavorite {
		name = "★ " + name
	}
	header := fmt.Sprintf("%s  (%d/%d)  %d°  %.1f×", name, pos, total, rot, s.Zoom())
	if a.deps.Rotations != nil && a.deps.Rotations.InFlight(p.ID) {
		header += "  Saving rotation..."
	}
	f.StyledText(1, 1, width, terminal.Bold, header)

	areaRows := height - 2
	areaW, areaH := width, areaRows*2
	img, state := a.images.get(ctx, s.ImageURL(thumbnail.SizeFull))
	switch state {
	case imageReady:
		pv := a.viewerPreview(img, s.ImageURL(thumbnail.SizeFull), rot, areaW, areaH, s.Zoom())
		cols, rows := terminal.CellSize(pv)
		f.Image(2+(areaRows-rows)/2, 1+(width-cols)/2, pv)
	case imageFailed:
		ph := media.Placeholder(areaW/2, areaH/2)
		cols, rows := terminal.CellSize(ph)
		f.Image(2+(areaRows-rows)/2, 1+(width-cols)/2, ph)
		f.StyledText(2+areaRows/2, 1+(width-17)/2, 0, terminal.Bold, "Image unavailable")
	default:
		f.StyledText(2+areaRows/2, 1+(width-10)/2, 0, terminal.Dim, "Loading...")
	}

	if s.ShowInfo() {
		const panel = 44
		col := width - panel + 1
		if col < 1 {
			col = 1
		}
		for i, field := range s.Info() {
			f.StyledText(2+i, col, panel, terminal.Reverse, fmt.Sprintf(" %-11s %-30s", field.Label, field.Value))
		}
	}

	footer := "←/→ navigate  r/l rotate  +/- zoom  i info  Esc close"
	if text := a.notice.Text(); text != "" {
		footer = text
	}
	f.StyledText(height, 1, width, terminal.Dim, footer)
}

// viewerPreview rotates and fits img to the viewer area, cropping the
// centre when zoomed past the screen. The last result is reused while
// nothing changed.
func (a *App) viewerPreview(img image.Image, url string, rot, w, h int, zoom float64) image.Image {
	key := fmt.Sprintf("%s|%d|%d|%d|%.3f", url, rot, w, h, zoom)

	a.mu.Lock()
	if a.preview.key == key {
		pv := a.preview.img
		a.mu.Unlock()
		return pv
	}
	a.mu.Unlock()

	pv := media.Preview(img, rot, w, h, zoom)
	b := pv.Bounds()
	if b.Dx() > w || b.Dy() > h {
		pv = imaging.CropCenter(pv, min(b.Dx(), w), min(b.Dy(), h))
	}

	a.mu.Lock()
	a.preview = previewCache{key: key, img: pv}
	a.mu.Unlock()
	return pv
}
