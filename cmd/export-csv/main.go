package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"poetryhub/internal/app"
	"poetryhub/internal/backend"
	"poetryhub/internal/prefs"
	"poetryhub/pkg/models"
	"poetryhub/pkg/utils"
)

func main() {
	var (
		configPath      = flag.String("config", "", "TOML config file (default $POETRYHUB_CONFIG)")
		backendName     = flag.String("backend", "", "export from this backend instead of the active one")
		format          = flag.String("format", "csv", "output format: csv or json")
		poemsOut        = flag.String("poems", "data/poems.csv", "output path for poems")
		translationsOut = flag.String("translations", "data/translations.csv", "output path for translations")
		bodiesDir       = flag.String("bodies", "", "also write each translation body into this directory")
	)
	flag.Parse()
	if *format != "csv" && *format != "json" {
		fmt.Fprintln(os.Stderr, "format must be csv or json")
		os.Exit(2)
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	var opts []app.Option
	if *backendName != "" {
		cfg.Backend.Default = *backendName
		opts = append(opts, app.WithPrefs(&prefs.Memory{}))
	}
	a, err := app.Build(cfg, opts...)
	if err != nil {
		slog.Error("build backends", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log := slog.Default().With("component", "export", "backend", a.Dispatcher.Current())
	svc := a.Dispatcher

	poems, err := svc.ListPoems(ctx)
	if err != nil {
		log.Error("list poems failed", "error", err)
		os.Exit(1)
	}
	if err := writeFile(*poemsOut, func(w io.Writer) error { return writePoems(w, *format, poems) }); err != nil {
		log.Error("export poems failed", "error", err)
		os.Exit(1)
	}

	translations, err := svc.ListTranslations(ctx)
	if err != nil {
		log.Error("list translations failed", "error", err)
		os.Exit(1)
	}
	if err := writeFile(*translationsOut, func(w io.Writer) error { return writeTranslations(w, *format, translations) }); err != nil {
		log.Error("export translations failed", "error", err)
		os.Exit(1)
	}

	if *bodiesDir != "" {
		n, err := exportBodies(ctx, svc, translations, *bodiesDir)
		if err != nil {
			log.Error("export bodies failed", "written", n, "error", err)
			os.Exit(1)
		}
		log.Info("exported translation bodies", "dir", *bodiesDir, "count", n)
	}

	log.Info("export done", "poems", len(poems), "poems_out", *poemsOut, "translations", len(translations), "translations_out", *translationsOut)
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writePoems(w io.Writer, format string, poems []models.Poem) error {
	if format == "json" {
		return writeJSON(w, poems)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "content_english", "content_greek", "likes", "comments", "created_at", "document_id"}); err != nil {
		return err
	}
	for _, p := range poems {
		if err := cw.Write([]string{
			p.ID,
			p.Title,
			p.ContentEnglish,
			p.ContentGreek,
			strconv.Itoa(p.Likes),
			strconv.Itoa(len(p.Comments)),
			formatTime(p.CreatedAt),
			p.DocumentID,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTranslations(w io.Writer, format string, items []models.TranslationSummary) error {
	if format == "json" {
		return writeJSON(w, items)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "created_at"}); err != nil {
		return err
	}
	for _, t := range items {
		if err := cw.Write([]string{t.ID, t.Title, formatTime(t.CreatedAt)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// exportBodies writes <id>.<ext> per translation. Empty translations are
// logged and skipped.
func exportBodies(ctx context.Context, svc backend.Service, items []models.TranslationSummary, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	n := 0
	for _, s := range items {
		t, err := svc.GetTranslation(ctx, s.ID)
		if err != nil {
			return n, err
		}
		var (
			name string
			data []byte
		)
		switch t.State() {
		case models.StateDocument:
			name, data = s.ID+documentExt(t.Document.ContentType), t.Document.Data
		case models.StateText:
			name, data = s.ID+".txt", []byte(t.Content)
		default:
			slog.Warn("no content available", "translation", s.ID, "title", s.Title)
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func documentExt(contentType string) string {
	switch contentType {
	case "", models.DefaultDocumentType:
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
