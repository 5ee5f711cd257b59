package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/kompozer/internal/api"
	"github.com/mattjoyce/kompozer/internal/config"
	"github.com/mattjoyce/kompozer/internal/inspect"
	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/log"
	"github.com/mattjoyce/kompozer/internal/plan"
	"github.com/mattjoyce/kompozer/internal/plancache"
	"github.com/mattjoyce/kompozer/internal/planner"
	"github.com/mattjoyce/kompozer/internal/sources"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	case "compile":
		return runCompile(args)
	case "validate":
		return runValidate(args)
	case "inspect":
		return runInspect(args)
	case "serve":
		return runServe(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `kompozer - beat-indexed komposition build planner

Usage:
  kompozer compile -f <komposition> -s <manifest> [-o <plan.json>] [-c <config>] [--cache <path>]
  kompozer validate -f <komposition> [-c <config>]
  kompozer inspect -f <plan.json>
  kompozer serve -s <manifest> [-c <config>] [--cache <path>]
  kompozer version [--json]

A komposition may be JSON, YAML, or HCL; the file extension decides.`)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

func openCache(ctx context.Context, cfg *config.Config, override string) (plancache.Store, error) {
	path := cfg.Cache.Path
	if override != "" {
		path = override
	}
	if path == "" {
		return nil, nil
	}
	return plancache.OpenSQLite(ctx, path)
}

func runCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	inPath := fs.String("f", "", "Komposition file (json, yaml, or hcl)")
	manifestPath := fs.String("s", "", "Source manifest file")
	outPath := fs.String("o", "", "Write the plan here instead of stdout")
	cfgPath := fs.String("c", "", "Config file")
	cachePath := fs.String("cache", "", "Plan cache database path")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *inPath == "" || *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "compile requires -f <komposition> and -s <manifest>")
		return 1
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	k, err := komposition.Load(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load komposition: %v\n", err)
		return 1
	}

	manifest, err := sources.LoadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load source manifest: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cache, err := openCache(ctx, cfg, *cachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open plan cache: %v\n", err)
		return 1
	}
	if cache != nil {
		defer cache.Close()
	}

	bp, cached, err := compileWithCache(ctx, cfg, k, manifest, cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		return 2
	}
	if cached {
		log.Info("plan served from cache", "plan_id", bp.PlanID)
	}

	data, err := bp.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode plan: %v\n", err)
		return 1
	}
	if *outPath == "" {
		fmt.Print(string(data))
		return 0
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write plan: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Plan %s written to %s\n", bp.PlanID, *outPath)
	return 0
}

func compileWithCache(ctx context.Context, cfg *config.Config, k *komposition.Komposition, manifest *sources.Manifest, cache plancache.Store) (*plan.BuildPlan, bool, error) {
	if cache != nil {
		if fingerprint, err := k.Fingerprint(); err == nil {
			if cached, err := cache.Get(ctx, fingerprint); err == nil {
				return cached, true, nil
			}
		}
	}

	p := planner.New(cfg.Planner, nil, manifest, manifest)
	bp, err := p.Compile(ctx, k)
	if err != nil {
		return nil, false, err
	}
	if cache != nil {
		if err := cache.Put(ctx, bp); err != nil {
			log.Warn("failed to cache plan", "plan_id", bp.PlanID, "error", err)
		}
	}
	return bp, false, nil
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	inPath := fs.String("f", "", "Komposition file (json, yaml, or hcl)")
	cfgPath := fs.String("c", "", "Config file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "validate requires -f <komposition>")
		return 1
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	k, err := komposition.Load(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load komposition: %v\n", err)
		return 1
	}

	if err := komposition.Validate(k, nil); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	fmt.Println("OK")
	return 0
}

func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	planPath := fs.String("f", "", "Plan file produced by compile")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "inspect requires -f <plan.json>")
		return 1
	}

	data, err := os.ReadFile(*planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read plan: %v\n", err)
		return 1
	}
	bp, err := plan.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode plan: %v\n", err)
		return 1
	}

	fmt.Println(inspect.Render(bp, inspect.NewDefaultTheme()))
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	manifestPath := fs.String("s", "", "Source manifest file")
	cfgPath := fs.String("c", "", "Config file")
	cachePath := fs.String("cache", "", "Plan cache database path")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "serve requires -s <manifest>")
		return 1
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	manifest, err := sources.LoadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load source manifest: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cache, err := openCache(ctx, cfg, *cachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open plan cache: %v\n", err)
		return 1
	}
	if cache != nil {
		defer cache.Close()
	}

	addr := cfg.API.Listen
	if *listen != "" {
		addr = *listen
	}

	p := planner.New(cfg.Planner, nil, manifest, manifest)
	server := api.New(api.Config{Listen: addr}, p, nil, cache, log.WithComponent("api"))

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("kompozer %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		if len(commit) > 12 {
			commit = commit[:12]
		}
		info.Commit = commit
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
