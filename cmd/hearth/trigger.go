package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hearth-dev/hearth/internal/config"
)

func triggerCmd() *cobra.Command {
	var (
		dir      string
		argPairs []string
	)

	cmd := &cobra.Command{
		Use:   "trigger <event>",
		Short: "Inject an event into a running blocking-mode server",
		Long: `Trigger writes <event>.json into the trigger directory. A server
running its blocking loop against that directory picks the file up on the
next cycle, dispatches the event with the given arguments, and deletes the
file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			eventName := cmdArgs[0]
			if strings.ContainsAny(eventName, "/\\.") {
				return fmt.Errorf("event name %q must not contain path or extension characters", eventName)
			}

			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				cfg, err := config.Load(wd)
				if err != nil {
					return err
				}
				dir = cfg.TriggerDir
			}
			if dir == "" {
				return fmt.Errorf("no trigger directory: pass --dir or set trigger_dir in %s", config.FileName)
			}

			args := make(map[string]any, len(argPairs))
			for _, pair := range argPairs {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("argument %q is not key=value", pair)
				}
				args[k] = v
			}

			data, err := json.MarshalIndent(args, "", "  ")
			if err != nil {
				return err
			}
			path := filepath.Join(dir, eventName+".json")
			if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "trigger directory (default: trigger_dir from hearth.json)")
	cmd.Flags().StringArrayVar(&argPairs, "arg", nil, "event argument as key=value (repeatable)")
	return cmd
}
