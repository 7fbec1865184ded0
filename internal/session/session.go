// Package session runs an interactive, line-oriented package.json builder on
// top of a compat.Model.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/git-pkgs/pkgbuilder/compat"
	"github.com/git-pkgs/pkgbuilder/internal/core"
	"github.com/git-pkgs/pkgbuilder/internal/display"
	"github.com/git-pkgs/pkgbuilder/internal/logging"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

const (
	// DefaultOutputPath is where write saves the manifest without an argument.
	DefaultOutputPath = "package.json"

	// Prompt is printed before each command when the session is interactive.
	Prompt = "pkgbuilder> "

	searchSize = 20
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// Session interprets commands against a model.
type Session struct {
	registry core.Registry
	model    *compat.Model
	out      io.Writer
	logger   *slog.Logger
	prompt   bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPrompt enables printing Prompt before every command.
func WithPrompt(enabled bool) Option {
	return func(s *Session) {
		s.prompt = enabled
	}
}

// New returns a session that resolves packages through reg and writes its
// output to out.
func New(reg core.Registry, model *compat.Model, out io.Writer, opts ...Option) *Session {
	s := &Session{
		registry: reg,
		model:    model,
		out:      out,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	model.Subscribe(s.published)
	return s
}

func (s *Session) published(res compat.Result) {
	s.logger.Debug("conflict report published",
		"seq", res.Seq,
		"conflicts", len(res.Report.Conflicts),
		"unavailable", len(res.Report.Unavailable))
}

// Model returns the session's model.
func (s *Session) Model() *compat.Model {
	return s.model
}

// Run reads commands from in until EOF, quit, or ctx is done. Command errors
// are printed and do not end the session.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if s.prompt {
			fmt.Fprint(s.out, Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out, display.ErrorStyle.Render("error: "+err.Error()))
		}
	}
}

// Exec runs a single command line. Blank lines and lines starting with # are
// ignored.
func (s *Session) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	s.logger.Debug("session command", "command", cmd, "args", args)

	switch strings.ToLower(cmd) {
	case "details":
		return s.details(args)
	case "name", "version", "description":
		return s.field(cmd, rest)
	case "add":
		return s.add(ctx, args, false)
	case "dev":
		return s.add(ctx, args, true)
	case "remove", "rm":
		return s.remove(ctx, args)
	case "show":
		return s.show()
	case "check":
		return s.check(ctx, true)
	case "search":
		return s.search(ctx, rest)
	case "maintainer":
		return s.maintainer(ctx, args)
	case "urls":
		return s.urls(ctx, args)
	case "lint":
		fmt.Fprint(s.out, display.Lint(manifest.Lint(s.model.Manifest())))
		return nil
	case "write":
		return s.write(args)
	case "help", "?":
		fmt.Fprint(s.out, helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (s *Session) details(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: details <name> <version> [description...]")
	}
	s.model.SetProjectDetails(args[0], args[1], strings.Join(args[2:], " "))
	fmt.Fprintf(s.out, "Project details set: %s@%s\n", args[0], args[1])
	return nil
}

// field sets one project detail, keeping the other two.
func (s *Session) field(which, value string) error {
	m := s.model.Manifest()
	name, version, description := m.Name, m.Version, m.Description
	switch strings.ToLower(which) {
	case "name":
		name = value
	case "version":
		version = value
	default:
		description = value
	}
	s.model.SetProjectDetails(name, version, description)
	fmt.Fprintf(s.out, "%s set to %q\n", strings.ToLower(which), value)
	return nil
}

func (s *Session) add(ctx context.Context, refs []string, dev bool) error {
	if len(refs) == 0 {
		return fmt.Errorf("usage: %s <package[@version]>...", addCommand(dev))
	}

	var errs []error
	added := 0
	for _, ref := range refs {
		name, version, err := s.resolve(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.model.AddDependency(ctx, name, version, dev)
		added++
		fmt.Fprintf(s.out, "Added %s %s to %s\n",
			display.PackageStyle.Render(name),
			display.RangeStyle.Render(manifest.CaretRange(version)),
			section(dev))
	}

	if added > 0 {
		if err := s.check(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) resolve(ctx context.Context, ref string) (string, string, error) {
	return s.model.Detector().Resolve(ctx, ref)
}

func (s *Session) remove(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("usage: remove <package>...")
	}

	var errs []error
	removed := 0
	for _, ref := range names {
		name, _, err := core.ParsePackageRef(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok, _ := s.model.RemoveDependency(ctx, name); !ok {
			errs = append(errs, fmt.Errorf("%s is not a dependency", name))
			continue
		}
		removed++
		fmt.Fprintf(s.out, "Removed %s\n", display.PackageStyle.Render(name))
	}

	if removed > 0 {
		if err := s.check(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) show() error {
	data, err := s.model.Render()
	if err != nil {
		return fmt.Errorf("rendering manifest: %w", err)
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

// check waits for the latest report and prints it. With verbose unset only
// conflicts and unavailable packages are printed.
func (s *Session) check(ctx context.Context, verbose bool) error {
	report, err := s.model.Wait(ctx)
	if err != nil {
		return fmt.Errorf("checking compatibility: %w", err)
	}
	if verbose || report.HasConflicts() || len(report.Unavailable) > 0 {
		fmt.Fprint(s.out, display.Report(report))
	}
	return nil
}

func (s *Session) search(ctx context.Context, query string) error {
	if query == "" {
		return fmt.Errorf("usage: search <query>")
	}
	results, err := s.registry.Search(ctx, query, searchSize)
	if err != nil {
		return fmt.Errorf("searching %s: %w", s.registry.Ecosystem(), err)
	}
	fmt.Fprint(s.out, display.Search(results, s.registry.URLs()))
	return nil
}

func (s *Session) maintainer(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: maintainer <username>")
	}
	searcher, ok := s.registry.(core.MaintainerSearcher)
	if !ok {
		return fmt.Errorf("%s registry does not support maintainer search", s.registry.Ecosystem())
	}
	results, err := searcher.SearchMaintainer(ctx, args[0])
	if err != nil {
		return fmt.Errorf("searching packages by %s: %w", args[0], err)
	}
	fmt.Fprint(s.out, display.Search(results, s.registry.URLs()))
	return nil
}

func (s *Session) urls(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: urls <package[@version]>")
	}
	name, version, err := s.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, display.URLs(s.registry.URLs(), name, version))
	return nil
}

func (s *Session) write(args []string) error {
	path := DefaultOutputPath
	if len(args) > 0 {
		path = args[0]
	}
	data, err := s.model.Render()
	if err != nil {
		return fmt.Errorf("rendering manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Info("manifest written", "path", path)
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}

func addCommand(dev bool) string {
	if dev {
		return "dev"
	}
	return "add"
}

func section(dev bool) string {
	if dev {
		return "devDependencies"
	}
	return "dependencies"
}

const helpText = `Commands:
  details <name> <version> [description]  set project details
  name <name>                             set the package name
  version <version>                       set the package version
  description <text>                      set the description
  add <pkg[@version]>...                  add dependencies (latest when no version)
  dev <pkg[@version]>...                  add devDependencies
  remove <pkg>...                         remove dependencies
  show                                    print package.json
  check                                   print the peer dependency report
  search <query>                          search the registry
  maintainer <user>                       list packages by a maintainer
  urls <pkg[@version]>                    print registry URLs for a package
  lint                                    validate the manifest
  write [path]                            save package.json (default ./package.json)
  help                                    show this help
  quit                                    leave the session
`
