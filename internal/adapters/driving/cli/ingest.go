package cli

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/logger"
)

var ingestWatch bool

// ingestExtensions are the file types accepted for ingestion.
var ingestExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]...",
	Short: "Ingest documents into the knowledge base",
	Long: `Chunks, embeds and stores the given files. Paths may be files or
directories; directories are walked recursively for .txt and .md
files. With --watch the command keeps running and re-ingests files
as they change.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "watch paths and re-ingest on change")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 && !ingestWatch {
		return fmt.Errorf("no ingestable files found: %w", domain.ErrInvalidInput)
	}

	for _, path := range files {
		if err := ingestFile(cmd, path); err != nil {
			return err
		}
	}

	if ingestWatch {
		return watchPaths(cmd, args)
	}
	return nil
}

// ingestFile reads one file and runs it through the service.
func ingestFile(cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	doc := &domain.Document{
		ID:      docIDFromPath(path),
		Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		URI:     "file://" + path,
		Content: string(content),
		Metadata: map[string]string{
			"source": path,
			"format": strings.TrimPrefix(filepath.Ext(path), "."),
		},
	}

	report, err := knowledgeService.IngestDocument(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	cmd.Printf("%s: %d/%d chunks ingested\n", path, report.Ingested, len(report.Items))
	for _, item := range report.Failed() {
		cmd.Printf("  failed: %s: %v\n", item.ChunkID, item.Err)
	}
	return nil
}

// collectFiles expands the argument paths into ingestable files.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if ingestExtensions[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && ingestExtensions[strings.ToLower(filepath.Ext(p))] {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}
	return files, nil
}

// docIDFromPath derives a stable document ID from a file path. The
// base name keeps IDs readable; the hash disambiguates same-named
// files in different directories.
func docIDFromPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	h := fnv.New32a()
	h.Write([]byte(abs)) //nolint:errcheck // hash writes never fail

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	return fmt.Sprintf("%s-%08x", name, h.Sum32())
}

// watchPaths blocks, re-ingesting files as they change, until the
// command context is cancelled.
func watchPaths(cmd *cobra.Command, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		// Watching the parent directory catches atomic renames from
		// editors that write a temp file and move it into place.
		dir := path
		if !info.IsDir() {
			dir = filepath.Dir(path)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("Watching %s", dir)
	}

	cmd.Println("Watching for changes. Press Ctrl+C to stop.")

	// Editors fire bursts of events per save; debounce per path.
	const debounce = 500 * time.Millisecond
	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !ingestExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if time.Since(lastSeen[event.Name]) < debounce {
				continue
			}
			lastSeen[event.Name] = time.Now()

			if err := ingestFile(cmd, event.Name); err != nil {
				logger.Warn("Re-ingest %s failed: %v", event.Name, err)
				cmd.PrintErrf("re-ingest %s: %v\n", event.Name, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}
