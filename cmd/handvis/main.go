package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/reatured/handvis/internal/app"
	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/filter"
	"github.com/reatured/handvis/internal/retarget"
	"github.com/reatured/handvis/internal/server"
	"github.com/reatured/handvis/internal/store"
	"github.com/reatured/handvis/internal/trace"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	modelPath := flag.String("model", "", "path to a hand model JSON (built-in model when empty)")
	flag.Parse()

	fmt.Println("Handvis - Hand Retargeting Service")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".handvis")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "handvis.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	model, err := loadModel(*modelPath)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	fmt.Printf("Active model: %s (%d joints)\n", model.Name, len(model.Joints))

	a := app.New(app.Config{
		Store:      st,
		AdapterDir: filepath.Join(dataDir, "adapters"),
		Model:      model,
		Extract:    extract.DefaultConfig(),
		Filter:     filter.DefaultConfig(),
		Tracer:     trace.NewLog(log.Default()),
	})
	a.LoadCalibration()
	if err := a.DiscoverAdapters(); err != nil {
		log.Printf("Adapter discovery failed: %v", err)
	}
	a.SetEnabled(true)

	webDir := findWebDir(dataDir)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	fmt.Printf("Starting server on %s\n", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadModel reads a model spec from disk, or falls back to the
// built-in hand.
func loadModel(path string) (*retarget.ModelSpec, error) {
	if path == "" {
		return retarget.DefaultModelSpec()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return retarget.ParseModelSpec(data)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handvis/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
