package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/integrahub/privilege"
	"github.com/integrahub/privilege/stores"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "convert":
		handleConvert()
	case "validate":
		handleValidate()
	case "stats":
		handleStats()
	case "apply":
		handleApply()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("privilege-config - role catalog configuration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  privilege-config convert <input> <output>  - Convert between formats")
	fmt.Println("  privilege-config validate <file>           - Validate configuration")
	fmt.Println("  privilege-config stats <file>              - Show configuration statistics")
	fmt.Println("  privilege-config apply <file>              - Dry-run the configuration against an in-memory engine")
	fmt.Println()
	fmt.Println("Supported formats: .yaml, .yml, .json, .bin")
}

func handleConvert() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: privilege-config convert <input> <output>")
		os.Exit(1)
	}

	inputFile := os.Args[2]
	outputFile := os.Args[3]

	cfg, err := loadConfig(inputFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := saveConfig(cfg, outputFile); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Converted %s -> %s\n", inputFile, outputFile)

	inStat, _ := os.Stat(inputFile)
	outStat, _ := os.Stat(outputFile)
	if inStat != nil && outStat != nil {
		reduction := (1 - float64(outStat.Size())/float64(inStat.Size())) * 100
		if reduction > 0 {
			fmt.Printf("Size reduced by %.1f%% (%d -> %d bytes)\n",
				reduction, inStat.Size(), outStat.Size())
		} else {
			fmt.Printf("Size increased by %.1f%% (%d -> %d bytes)\n",
				-reduction, inStat.Size(), outStat.Size())
		}
	}
}

func handleValidate() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: privilege-config validate <file>")
		os.Exit(1)
	}

	filename := os.Args[2]
	cfg, err := loadConfig(filename)
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Version: %d\n", cfg.Version)
	fmt.Printf("  Roles:   %d\n", len(cfg.Roles))
}

func handleStats() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: privilege-config stats <file>")
		os.Exit(1)
	}

	filename := os.Args[2]
	cfg, err := loadConfig(filename)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	stat, _ := os.Stat(filename)

	fmt.Println("Configuration Statistics")
	fmt.Println("========================")
	if stat != nil {
		fmt.Printf("File size: %d bytes\n", stat.Size())
	}
	fmt.Printf("Version: %d\n", cfg.Version)
	fmt.Printf("Roles:   %d\n", len(cfg.Roles))
	fmt.Println()

	if len(cfg.Roles) > 0 {
		grants := 0
		revokes := 0
		for _, r := range cfg.Roles {
			grants += len(r.Grant)
			revokes += len(r.Revoke)
		}
		fmt.Println("Role Details:")
		fmt.Printf("  Grant patterns:  %d\n", grants)
		fmt.Printf("  Revoke patterns: %d\n", revokes)
		fmt.Printf("  Avg per role:    %.1f\n", float64(grants+revokes)/float64(len(cfg.Roles)))
		fmt.Println()
	}

	fmt.Println("Engine Configuration:")
	fmt.Printf("  Signal channel:  %s\n", cfg.Engine.SignalChannel)
	fmt.Printf("  Owner cache TTL: %dms\n", cfg.Engine.OwnerCacheTTL)
}

func handleApply() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: privilege-config apply <file>")
		os.Exit(1)
	}

	filename := os.Args[2]
	cfg, err := loadConfig(filename)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	engine, err := privilege.NewEngine(stores.NewMemoryRoleSource(), stores.NewMemoryDirectory())
	if err != nil {
		fmt.Printf("Error creating engine: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := engine.ApplyConfig(ctx, cfg); err != nil {
		fmt.Printf("Error applying config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration applied successfully\n")
	fmt.Printf("  Roles loaded: %d\n", engine.Catalog().Current().Len())
}

func loadConfig(filename string) (*privilege.Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	loader := privilege.NewConfigLoader()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".yaml", ".yml":
		return loader.LoadYAML(data)
	case ".json":
		return loader.LoadJSON(data)
	case ".bin":
		return loader.LoadBinary(data)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func saveConfig(cfg *privilege.Config, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = cfg.ToYAML()
	case ".json":
		data, err = cfg.ToJSON()
	case ".bin":
		data, err = privilege.EncodeBinaryConfig(cfg)
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}

	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
