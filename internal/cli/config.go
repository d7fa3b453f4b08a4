package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/config"
	"github.com/fancypantalons/bdedit/internal/db"
	"github.com/fancypantalons/bdedit/internal/editor"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/render"
)

type configInfo struct {
	Dir           string `json:"dir"`
	ConfigPath    string `json:"config_path"`
	ConfigFound   bool   `json:"config_found"`
	DBPath        string `json:"db_path"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	SchemaVersion int    `json:"schema_version"`
	BDCommand     string `json:"bd_command"`
	Editor        string `json:"editor"`
	Timeout       string `json:"timeout"`
	WorkDir       string `json:"work_dir,omitempty"`
	Confirm       bool   `json:"confirm"`
	PathEnvSet    bool   `json:"bdedit_path_set"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display bdedit configuration",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		info := configInfo{
			Dir:        cfg.Dir,
			ConfigPath: cfg.ConfigPath,
			DBPath:     cfg.DBPath,
			BDCommand:  cfg.BDCommand,
			Editor:     editor.Resolve(cfg.Editor),
			Timeout:    cfg.Timeout.String(),
			WorkDir:    cfg.WorkDir,
			Confirm:    cfg.Confirm,
			PathEnvSet: cfg.EnvVarSet,
		}

		if _, err := os.Stat(cfg.ConfigPath); err == nil {
			info.ConfigFound = true
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}
		if exists {
			if err := readDBInfo(cfg, &info); err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
		}

		w.Success(info, formatConfigHuman(info, exists))
		return nil
	},
}

func readDBInfo(cfg *config.Config, info *configInfo) error {
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer conn.Close()

	info.SchemaVersion, err = db.SchemaVersion(conn)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	stat, err := os.Stat(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("reading database file: %w", err)
	}
	info.DBSizeBytes = stat.Size()
	return nil
}

func notSet(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}

// configRows returns the label/value pairs shown by the human view.
func configRows(info configInfo, dbFound bool) [][2]string {
	configPath := info.ConfigPath
	if !info.ConfigFound {
		configPath += " (not found)"
	}
	dbPath := info.DBPath
	if !dbFound {
		dbPath += " (created on first edit)"
	}

	rows := [][2]string{
		{"Config file:", configPath},
		{"Database path:", dbPath},
	}
	if dbFound {
		rows = append(rows,
			[2]string{"Database size:", humanize.IBytes(uint64(info.DBSizeBytes))},
			[2]string{"Schema version:", fmt.Sprint(info.SchemaVersion)},
		)
	}
	return append(rows,
		[2]string{"bd command:", info.BDCommand},
		[2]string{"Editor:", info.Editor},
		[2]string{"Timeout:", info.Timeout},
		[2]string{"Work dir:", notSet(info.WorkDir)},
		[2]string{"Confirm:", fmt.Sprint(info.Confirm)},
		[2]string{"BDEDIT_PATH:", notSet(os.Getenv("BDEDIT_PATH"))},
	)
}

func formatConfigHuman(info configInfo, dbFound bool) string {
	rows := configRows(info, dbFound)

	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}

	if !render.ColorsEnabled() {
		var b strings.Builder
		for _, r := range rows {
			fmt.Fprintf(&b, "%-*s %s\n", width, r[0], r[1])
		}
		return strings.TrimRight(b.String(), "\n")
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	lines := []string{headerStyle.Render("bdedit Configuration"), ""}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %s %s", keyStyle.Render(fmt.Sprintf("%-*s", width, r[0])), valStyle.Render(r[1])))
	}
	return strings.Join(lines, "\n")
}

func init() {
	rootCmd.AddCommand(configCmd)
}
