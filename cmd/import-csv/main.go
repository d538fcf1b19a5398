package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"poetryhub/internal/app"
	"poetryhub/internal/backend"
	"poetryhub/internal/prefs"
	"poetryhub/internal/translations"
	"poetryhub/pkg/models"
	"poetryhub/pkg/utils"
)

func main() {
	var (
		configPath     = flag.String("config", "", "TOML config file (default $POETRYHUB_CONFIG)")
		backendName    = flag.String("backend", "", "import into this backend instead of the active one")
		poemsIn        = flag.String("poems", "", "input CSV path for poems")
		translationsIn = flag.String("translations", "", "input CSV path for translations")
	)
	flag.Parse()
	if *poemsIn == "" && *translationsIn == "" {
		fmt.Fprintln(os.Stderr, "usage: import-csv [-backend remote|store] -poems file.csv -translations file.csv")
		os.Exit(2)
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	var opts []app.Option
	if *backendName != "" {
		// an explicit target must not touch the saved preference
		cfg.Backend.Default = *backendName
		opts = append(opts, app.WithPrefs(&prefs.Memory{}))
	}
	a, err := app.Build(cfg, opts...)
	if err != nil {
		slog.Error("build backends", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if *backendName != "" {
		id, err := backend.ParseID(*backendName)
		if err == nil && a.Dispatcher.Current() != id {
			slog.Error("backend not ready", "backend", id)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log := slog.Default().With("component", "import", "backend", a.Dispatcher.Current())
	if *poemsIn != "" {
		n, err := importFile(*poemsIn, func(r io.Reader) (int, error) {
			return importPoems(ctx, a.Dispatcher, r)
		})
		if err != nil {
			log.Error("import poems failed", "file", *poemsIn, "imported", n, "error", err)
			os.Exit(1)
		}
		log.Info("imported poems", "file", *poemsIn, "count", n)
	}
	if *translationsIn != "" {
		base := filepath.Dir(*translationsIn)
		n, err := importFile(*translationsIn, func(r io.Reader) (int, error) {
			return importTranslations(ctx, a.Dispatcher, r, base)
		})
		if err != nil {
			log.Error("import translations failed", "file", *translationsIn, "imported", n, "error", err)
			os.Exit(1)
		}
		log.Info("imported translations", "file", *translationsIn, "count", n)
	}
}

func importFile(path string, fn func(io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return fn(f)
}

// importPoems reads title, content_english and content_greek columns.
// Rows with a blank title are skipped.
func importPoems(ctx context.Context, svc backend.Service, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := readHeader(cr)
	if err != nil {
		return 0, err
	}

	n := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		title := valueAt(header, row, "title")
		if title == "" {
			continue
		}
		_, err = svc.CreatePoem(ctx, models.PoemInput{
			Title:          title,
			ContentEnglish: valueAt(header, row, "content_english"),
			ContentGreek:   valueAt(header, row, "content_greek"),
		})
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
}

// importTranslations reads title, date, content and document columns.
// document is a file path relative to the CSV; content_type defaults to the
// file extension's type.
func importTranslations(ctx context.Context, svc backend.Service, r io.Reader, baseDir string) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := readHeader(cr)
	if err != nil {
		return 0, err
	}

	n := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		title := valueAt(header, row, "title")
		if title == "" {
			continue
		}

		in := models.TranslationInput{Title: title, Content: valueAt(header, row, "content")}
		if raw := valueAt(header, row, "date"); raw != "" {
			in.Date, err = translations.ParseDate(raw)
			if err != nil {
				return n, fmt.Errorf("line %d: parse date: %w", line, err)
			}
		}
		if doc := valueAt(header, row, "document"); doc != "" {
			if !filepath.IsAbs(doc) {
				doc = filepath.Join(baseDir, doc)
			}
			data, err := os.ReadFile(doc)
			if err != nil {
				return n, fmt.Errorf("line %d: %w", line, err)
			}
			ct := valueAt(header, row, "content_type")
			if ct == "" {
				ct = mime.TypeByExtension(filepath.Ext(doc))
			}
			in.Document = &models.Document{Data: data, ContentType: ct}
			in.Content = ""
		}

		if _, err := svc.CreateTranslation(ctx, in); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
