package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/startup"
	"bokeh-viewer/internal/thumbnail"
)

const (
	// Default timeout for one command
	defaultTimeout = 30 * time.Second
	// Page size used when searching the library for one photo
	lookupPageSize = 500
)

// errUsage marks bad arguments; usage is printed and the exit code is 2.
var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(2)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	cfg, err := startup.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	client := api.New(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRateLimit(cfg.APIRateLimit, 1),
		api.WithUserAgent("bokehctl/"+startup.Version),
	)

	c := &cli{
		client:   client,
		resolver: thumbnail.NewResolver(cfg.APIURL),
		perPage:  cfg.PerPage,
		sort:     cfg.Sort,
		order:    cfg.Order,
		out:      os.Stdout,
		errOut:   os.Stderr,
		confirm:  terminalConfirm(os.Stdin, os.Stdout),
	}
	os.Exit(c.run(ctx, os.Args[1], os.Args[2:]))
}

// Client is the part of the backend API the commands use.
type Client interface {
	ListPhotos(ctx context.Context, opts api.ListOptions) (*api.PhotoPage, error)
	Years(ctx context.Context) ([]api.YearSummary, error)
	FolderTree(ctx context.Context) ([]api.FolderNode, error)
	UpdateRotation(ctx context.Context, id, rotation int) (*api.RotationResult, error)
	RegenerateThumbnail(ctx context.Context, id int) error
	RegenerateAll(ctx context.Context, force bool) (*api.RegenerateAllResult, error)
	StartImport(ctx context.Context, scanType string) (*api.ImportResult, error)
	Jobs(ctx context.Context, includeCompleted bool) ([]api.Job, error)
	CancelJob(ctx context.Context, id int) error
	SystemStats(ctx context.Context) (*api.SystemStats, error)
}

type cli struct {
	client   Client
	resolver *thumbnail.Resolver
	perPage  int
	sort     string
	order    string
	out      io.Writer
	errOut   io.Writer
	confirm  func(prompt string) (bool, error)
}

// run executes one command and returns the process exit code.
func (c *cli) run(ctx context.Context, command string, args []string) int {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var err error
	switch command {
	case "photos":
		err = c.photos(ctx, args)
	case "rotate":
		err = c.rotate(ctx, args)
	case "regenerate":
		err = c.regenerate(ctx, args)
	case "scan":
		err = c.scan(ctx, args)
	case "jobs":
		err = c.jobs(ctx)
	case "cancel":
		err = c.cancel(ctx, args)
	case "stats":
		err = c.stats(ctx)
	case "years":
		err = c.years(ctx)
	case "folders":
		err = c.folders(ctx)
	case "url":
		err = c.url(ctx, args)
	case "help", "-h", "--help":
		printUsage(c.out)
		return 0
	default:
		fmt.Fprintf(c.errOut, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(c.errOut)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(c.errOut, "Error: %v\n", err)
		printUsage(c.errOut)
		return 2
	default:
		fmt.Fprintf(c.errOut, "Error: %v\n", err)
		return 1
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Bokeh Viewer command line")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: bokehctl <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  photos [page]              - List one page of the library")
	fmt.Fprintln(w, "  rotate <id> <left|right>   - Rotate a photo by 90 degrees")
	fmt.Fprintln(w, "  regenerate <id>|all        - Regenerate thumbnails")
	fmt.Fprintln(w, "  scan [incremental|full]    - Start a library scan")
	fmt.Fprintln(w, "  jobs                       - List backend jobs")
	fmt.Fprintln(w, "  cancel <id> [-y]           - Cancel a job")
	fmt.Fprintln(w, "  stats                      - Show library and disk statistics")
	fmt.Fprintln(w, "  years                      - Show photo counts per year")
	fmt.Fprintln(w, "  folders                    - Show the folder tree")
	fmt.Fprintln(w, "  url <id> [size]            - Print the thumbnail URL of a photo")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  API_URL - Photo backend (default: %s)\n", startup.DefaultAPIURL)
	fmt.Fprintln(w, "  ENV_FILE - Optional .env file (default: .env)")
}

func parseID(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing %s id", errUsage, what)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", errUsage, what, args[0])
	}
	return id, nil
}

func (c *cli) listOptions(page, perPage int) api.ListOptions {
	return api.ListOptions{Page: page, PerPage: perPage, Sort: c.sort, Order: c.order}
}

func (c *cli) photos(ctx context.Context, args []string) error {
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: invalid page %q", errUsage, args[0])
		}
		page = n
	}

	result, err := c.client.ListPhotos(ctx, c.listOptions(page, c.perPage))
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}

	fmt.Fprintf(c.out, "Page %d of %d (%d photos)\n", result.Pagination.Page, result.Pagination.TotalPages, result.Pagination.Total)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tDATE\tROTATION\tVERSION")
	for _, p := range result.Data {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d°\t%d\n", p.ID, p.Filename, p.EffectiveDate().Format("2006-01-02 15:04"), p.Rotation(), p.RotationVersion)
	}
	return tw.Flush()
}

// findPhoto pages through the library until it finds id.
func (c *cli) findPhoto(ctx context.Context, id int) (photo.Record, error) {
	for page := 1; ; page++ {
		result, err := c.client.ListPhotos(ctx, c.listOptions(page, lookupPageSize))
		if err != nil {
			return photo.Record{}, fmt.Errorf("look up photo %d: %w", id, err)
		}
		for _, p := range result.Data {
			if p.ID == id {
				return p, nil
			}
		}
		if page >= result.Pagination.TotalPages || len(result.Data) == 0 {
			return photo.Record{}, fmt.Errorf("photo %d: %w", id, api.ErrNotFound)
		}
	}
}

func (c *cli) rotate(ctx context.Context, args []string) error {
	id, err := parseID(args, "photo")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: missing direction", errUsage)
	}
	dir, err := photo.ParseDirection(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	p, err := c.findPhoto(ctx, id)
	if err != nil {
		return err
	}

	requested := photo.Rotate(p.Rotation(), dir)
	result, err := c.client.UpdateRotation(ctx, id, requested)
	if err != nil {
		return fmt.Errorf("rotate photo %d: %w", id, err)
	}
	st := result.State(requested)

	if err := c.client.RegenerateThumbnail(ctx, id); err != nil {
		fmt.Fprintf(c.errOut, "Warning: thumbnail regeneration for photo %d failed: %v\n", id, err)
	}

	fmt.Fprintf(c.out, "Photo %d rotated %s: %d° -> %d° (version %d)\n", id, dir, p.Rotation(), st.FinalRotation, st.Version)
	return nil
}

func (c *cli) regenerate(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "all" {
		result, err := c.client.RegenerateAll(ctx, false)
		if err != nil {
			return fmt.Errorf("regenerate all thumbnails: %w", err)
		}
		fmt.Fprintf(c.out, "Thumbnail regeneration started for %d photos", result.TotalPhotos)
		if result.JobID != "" {
			fmt.Fprintf(c.out, " (job %s)", result.JobID)
		}
		fmt.Fprintln(c.out)
		return nil
	}

	id, err := parseID(args, "photo")
	if err != nil {
		return err
	}
	if err := c.client.RegenerateThumbnail(ctx, id); err != nil {
		return fmt.Errorf("regenerate photo %d: %w", id, err)
	}
	fmt.Fprintf(c.out, "Thumbnail regeneration queued for photo %d\n", id)
	return nil
}

func (c *cli) scan(ctx context.Context, args []string) error {
	scanType := ""
	if len(args) > 0 {
		switch args[0] {
		case "incremental", "full":
			scanType = args[0]
		default:
			return fmt.Errorf("%w: unknown scan type %q", errUsage, args[0])
		}
	}

	result, err := c.client.StartImport(ctx, scanType)
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}
	fmt.Fprintf(c.out, "Scan started: Job #%s\n", result.JobID)
	return nil
}

func (c *cli) jobs(ctx context.Context) error {
	list, err := c.client.Jobs(ctx, true)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No jobs")
		return nil
	}

	fmt.Fprintln(c.out, jobs.ActiveJobsLabel(len(jobs.Active(list))))
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJOB\tSTATUS\tPROGRESS\tDETAIL")
	for _, j := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f%%\t%s\n", j.ID, jobs.Title(j), j.Status, j.Progress, jobs.Detail(j))
	}
	return tw.Flush()
}

func (c *cli) cancel(ctx context.Context, args []string) error {
	id, err := parseID(args, "job")
	if err != nil {
		return err
	}

	yes := len(args) > 1 && (args[1] == "-y" || args[1] == "--yes")
	if !yes {
		ok, err := c.confirm(fmt.Sprintf("Cancel job #%d? [y/N] ", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Aborted")
			return nil
		}
	}

	if err := c.client.CancelJob(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel job #%d: %w", id, err)
	}
	fmt.Fprintf(c.out, "Job #%d cancelled\n", id)
	return nil
}

func (c *cli) stats(ctx context.Context) error {
	st, err := c.client.SystemStats(ctx)
	if err != nil {
		return fmt.Errorf("system stats: %w", err)
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Photos:\t%d\n", st.TotalPhotos)
	fmt.Fprintf(tw, "Library size:\t%s\n", jobs.FormatBytes(st.TotalSize))
	fmt.Fprintf(tw, "Disk used:\t%s (%.1f%%)\n", jobs.FormatBytes(st.DiskUsage.Used), st.DiskUsage.Percentage)
	fmt.Fprintf(tw, "Disk available:\t%s\n", jobs.FormatBytes(st.DiskUsage.Available))
	fmt.Fprintf(tw, "Jobs:\t%s\n", jobs.ActiveJobsLabel(st.ActiveJobs))
	if st.Version != "" {
		fmt.Fprintf(tw, "Backend version:\t%s\n", st.Version)
	}
	return tw.Flush()
}

func (c *cli) years(ctx context.Context) error {
	years, err := c.client.Years(ctx)
	if err != nil {
		return fmt.Errorf("list years: %w", err)
	}
	if len(years) == 0 {
		fmt.Fprintln(c.out, "No photos")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, y := range years {
		fmt.Fprintf(tw, "%d\t%d photos\n", y.Year, y.Count)
	}
	return tw.Flush()
}

func (c *cli) folders(ctx context.Context) error {
	nodes, err := c.client.FolderTree(ctx)
	if err != nil {
		return fmt.Errorf("folder tree: %w", err)
	}
	if len(nodes) == 0 {
		fmt.Fprintln(c.out, "No folders")
		return nil
	}

	for _, root := range nodes {
		root.Walk(func(n api.FolderNode, depth int) {
			fmt.Fprintf(c.out, "%s%s/ (%d, %d total)\n", strings.Repeat("  ", depth), n.Name, n.PhotoCount, n.RecursivePhotoCount)
		})
	}
	return nil
}

func (c *cli) url(ctx context.Context, args []string) error {
	id, err := parseID(args, "photo")
	if err != nil {
		return err
	}
	size := thumbnail.SizeMedium
	if len(args) > 1 {
		size, err = thumbnail.ParseSize(args[1])
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	p, err := c.findPhoto(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.resolver.Resolve(p, size, nil))
	return nil
}

// terminalConfirm asks on the terminal. Without a terminal there is nobody
// to ask, so the answer is an error telling the caller to pass -y.
func terminalConfirm(in *os.File, out io.Writer) func(string) (bool, error) {
	return func(prompt string) (bool, error) {
		if !term.IsTerminal(int(in.Fd())) {
			return false, errors.New("stdin is not a terminal; pass -y to confirm")
		}
		return readConfirm(in, out, prompt)
	}
}

func readConfirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
