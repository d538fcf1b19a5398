package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"poetryhub/internal/app"
	"poetryhub/internal/backend"
	"poetryhub/internal/dispatch"
	"poetryhub/pkg/models"
	"poetryhub/pkg/utils"
)

type cli struct {
	app       *app.App
	d         *dispatch.Dispatcher
	tokenPath string
	out       io.Writer
}

func main() {
	global := flag.NewFlagSet("poetryhub", flag.ExitOnError)
	configPath := global.String("config", "", "TOML config file (default $POETRYHUB_CONFIG)")
	baseURL := global.String("api", "", "remote API base URL (overrides config)")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		slog.Error("parse flags", "error", err)
		os.Exit(2)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Remote.URL = *baseURL
	}

	a, err := app.Build(cfg)
	if err != nil {
		slog.Error("build backends", "error", err)
		os.Exit(1)
	}
	c := &cli{app: a, d: a.Dispatcher, tokenPath: *tokenPath, out: os.Stdout}
	c.restoreSession()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	err = c.run(ctx, args)
	cancel()
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := []string{}
	if len(args) > 2 {
		rest = args[2:]
	}

	switch cmd {
	case "backend":
		return c.handleBackend(ctx, sub, rest)
	case "poems":
		return c.handlePoems(ctx, sub, rest)
	case "translations":
		return c.handleTranslations(ctx, sub, rest)
	case "auth":
		return c.handleAuth(ctx, sub, rest)
	case "users":
		return c.handleUsers(ctx, sub)
	default:
		printUsage(c.out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// restoreSession hands a saved remote token to the remote adapter.
func (c *cli) restoreSession() {
	td, err := readToken(c.tokenPath)
	if err != nil || td.Token == "" || td.Backend != backend.Remote {
		return
	}
	c.app.Remote.UseToken(td.Token)
}

func (c *cli) handleBackend(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "", "show":
		rows := make([][]string, 0, len(backend.IDs))
		for _, id := range backend.IDs {
			active := ""
			if id == c.d.Current() {
				active = "*"
			}
			rows = append(rows, []string{active, id.String(), yesNo(c.d.Ready(id))})
		}
		fmt.Fprintln(c.out, renderTable([]string{"", "Backend", "Ready"}, rows, nil))
		return nil
	case "use":
		if len(args) != 1 {
			return errors.New("usage: poetryhub backend use <remote|store>")
		}
		id, err := backend.ParseID(args[0])
		if err != nil {
			return err
		}
		if err := c.d.Use(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "active backend: %s\n", c.d.Current())
		return nil
	default:
		return errors.New("usage: poetryhub backend <show|use>")
	}
}

func (c *cli) handlePoems(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "list":
		poems, err := c.d.ListPoems(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(poems))
		for _, p := range poems {
			kind := "poem"
			if p.IsDocument() {
				kind = "document"
			}
			rows = append(rows, []string{
				p.ID, p.Title, kind, strconv.Itoa(p.Likes), strconv.Itoa(len(p.Comments)), formatDate(p.CreatedAt),
			})
		}
		fmt.Fprintln(c.out, renderTable(
			[]string{"ID", "Title", "Kind", "Likes", "Comments", "Created"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	case "show":
		fs := flag.NewFlagSet("poems show", flag.ContinueOnError)
		id := fs.String("id", "", "poem id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("poem id is required")
		}
		p, err := c.d.GetPoem(ctx, *id)
		if err != nil {
			return err
		}
		printPoem(c.out, p)
		return nil
	case "like":
		fs := flag.NewFlagSet("poems like", flag.ContinueOnError)
		id := fs.String("id", "", "poem id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("poem id is required")
		}
		likes, err := c.d.LikePoem(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "likes: %d\n", likes)
		return nil
	case "comment":
		fs := flag.NewFlagSet("poems comment", flag.ContinueOnError)
		id := fs.String("id", "", "poem id")
		author := fs.String("author", "", "display name")
		text := fs.String("text", "", "comment text")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("poem id is required")
		}
		cm, err := c.d.AddComment(ctx, *id, models.CommentInput{Author: *author, Text: *text})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "comment %s added\n", cm.ID)
		return nil
	default:
		return errors.New("usage: poetryhub poems <list|show|like|comment>")
	}
}

func (c *cli) handleTranslations(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "list":
		items, err := c.d.ListTranslations(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(items))
		for _, t := range items {
			rows = append(rows, []string{t.ID, t.Title, formatDate(t.CreatedAt)})
		}
		fmt.Fprintln(c.out, renderTable([]string{"ID", "Title", "Created"}, rows, nil))
		return nil
	case "fetch":
		fs := flag.NewFlagSet("translations fetch", flag.ContinueOnError)
		id := fs.String("id", "", "translation id")
		out := fs.String("out", "", "output path (documents default to the title)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("translation id is required")
		}
		t, err := c.d.GetTranslation(ctx, *id)
		if err != nil {
			return err
		}
		return c.writeTranslation(t, *out)
	default:
		return errors.New("usage: poetryhub translations <list|fetch>")
	}
}

func (c *cli) writeTranslation(t models.Translation, out string) error {
	switch t.State() {
	case models.StateDocument:
		if out == "" {
			out = fileName(t.Title) + documentExt(t.Document.ContentType)
		}
		if err := os.WriteFile(out, t.Document.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "saved %s (%s, %d bytes)\n", out, t.Document.ContentType, len(t.Document.Data))
		return nil
	case models.StateText:
		if out == "" {
			fmt.Fprintln(c.out, t.Content)
			return nil
		}
		return os.WriteFile(out, []byte(t.Content), 0o644)
	default:
		return fmt.Errorf("%s: no content available", t.Title)
	}
}

func (c *cli) handleAuth(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ContinueOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return c.login(ctx, models.Credentials{Email: *email, Password: *password})
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ContinueOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if _, err := c.d.SignUp(ctx, models.SignUpInput{Username: *username, Email: *email, Password: *password}); err != nil {
			return err
		}
		return c.login(ctx, models.Credentials{Email: *email, Password: *password})
	case "logout":
		if err := clearToken(c.tokenPath); err != nil {
			return err
		}
		c.app.Remote.UseToken("")
		fmt.Fprintln(c.out, "logged out")
		return nil
	default:
		return errors.New("usage: poetryhub auth <login|register|logout>")
	}
}

func (c *cli) login(ctx context.Context, creds models.Credentials) error {
	id := c.d.Current()
	s, err := c.d.SignIn(ctx, creds)
	if err != nil {
		return err
	}
	if err := saveToken(c.tokenPath, id, s); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if id == backend.Remote {
		c.app.Remote.UseToken(s.Token)
	}
	role := "user"
	if s.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(c.out, "logged in on %s as %s (%s)\n", id, cmp.Or(s.Email, creds.Email), role)
	return nil
}

func (c *cli) handleUsers(ctx context.Context, sub string) error {
	if sub != "" && sub != "list" {
		return errors.New("usage: poetryhub users list")
	}
	users, err := c.d.ListUsers(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Username, u.Email, yesNo(u.IsAdmin), formatDate(u.CreatedAt)})
	}
	fmt.Fprintln(c.out, renderTable([]string{"ID", "Username", "Email", "Admin", "Created"}, rows, nil))
	return nil
}

func printPoem(w io.Writer, p models.Poem) {
	fmt.Fprintf(w, "%s\n%s · %d likes\n", p.Title, formatDate(p.CreatedAt), p.Likes)
	if p.IsDocument() {
		fmt.Fprintf(w, "\nscanned document: poetryhub translations fetch -id %s\n", p.DocumentID)
		return
	}
	fmt.Fprintf(w, "\n[English]\n%s\n\n[Greek]\n%s\n", p.ContentEnglish, p.ContentGreek)
	if len(p.Comments) == 0 {
		return
	}
	rows := make([][]string, 0, len(p.Comments))
	for _, cm := range p.Comments {
		rows = append(rows, []string{formatDate(cm.CreatedAt), cm.Author, cm.Text})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable([]string{"Date", "Author", "Comment"}, rows, nil))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateOnly)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// fileName turns a title into a safe base name.
func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "-")
	if name == "" {
		return "translation"
	}
	return name
}

func documentExt(contentType string) string {
	if contentType == "" || contentType == models.DefaultDocumentType {
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "poetryhub [-config file] [-api url] [-token file] <command> [subcommand] [flags]")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  backend show|use <remote|store>")
	fmt.Fprintln(w, "  poems list|show|like|comment")
	fmt.Fprintln(w, "  translations list|fetch")
	fmt.Fprintln(w, "  auth login|register|logout")
	fmt.Fprintln(w, "  users list")
}
