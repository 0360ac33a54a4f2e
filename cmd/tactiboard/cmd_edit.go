package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/tactiboard/internal/editor"
	"github.com/ivlev/tactiboard/internal/scene"
)

var (
	editScript     string
	editBackground string
	editSave       bool
	editRetries    int
)

var editCmd = &cobra.Command{
	Use:   "edit <scene.json>",
	Short: "Replay editor commands on a scene",
	Long: `Opens an editor session on the scene (a missing file starts an empty one),
replays the commands of a YAML script and, with --save, exports the result
and writes it back. Without --save the draft is discarded.

Script steps: ` + fmt.Sprint(editor.ScriptCommands()) + `

Example script:
  - preset: {name: rondo4v2, confirm: true}
  - add: {kind: arrow}
  - down: {x: 0.5, y: 0.5, resolve: true}
  - move: {x: 0.6, y: 0.4}
  - up: {x: 0.6, y: 0.4}
  - style: {dashed: true}`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editScript, "script", "s", "", "YAML command script")
	editCmd.Flags().StringVar(&editBackground, "background", "", "Image to upload and use as the background")
	editCmd.Flags().BoolVar(&editSave, "save", false, "Export and write the scene when done")
	editCmd.Flags().IntVar(&editRetries, "retries", 1, "Retries of a failed save")
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]
	persisted, err := readScene(path)
	if err != nil {
		return err
	}

	p, err := cli.pipeline()
	if err != nil {
		return err
	}
	u, err := cli.uploader()
	if err != nil {
		return err
	}

	id := sceneID(path)
	s := editor.Open(id, persisted, cli.controller(), p,
		editor.WithPersister(editor.PersisterFunc(func(ctx context.Context, _ string, doc scene.Document) error {
			return scene.WriteFile(doc, path)
		})),
		editor.WithBackgroundUploader(u, cli.cfg.Storage.Prefix),
		editor.WithHistorySize(cli.cfg.Editor.HistorySize),
		editor.WithSessionLogger(cli.log),
	)
	defer s.Close()

	if persisted == nil {
		fmt.Printf("[*] New scene %s\n", id)
	}

	if editBackground != "" {
		data, err := os.ReadFile(editBackground)
		if err != nil {
			return err
		}
		if _, err := s.UploadBackground(cmd.Context(), filepath.Base(editBackground), data); err != nil {
			return err
		}
		fmt.Printf("[*] Background: %s\n", s.Draft().Background.URL)
	}

	if editScript != "" {
		data, err := os.ReadFile(editScript)
		if err != nil {
			return err
		}
		cmds, err := editor.ParseScript(data)
		if err != nil {
			return err
		}
		results, err := s.Run(cmds)
		if err != nil {
			return err
		}
		for i, res := range results {
			switch {
			case res.Err != nil:
				fmt.Printf("[!] Step %d: %v\n", i+1, res.Err)
			case res.NeedsConfirmation:
				fmt.Printf("[!] Step %d: replacing a non-empty scene needs confirm: true, skipped\n", i+1)
			}
		}
		fmt.Printf("[*] Replayed %d commands, %d objects in the draft\n", len(cmds), len(s.Draft().Objects))
	}

	if !editSave {
		if _, _, err := s.Cancel(); err != nil {
			return err
		}
		fmt.Println("[*] Draft discarded, use --save to keep it")
		return nil
	}

	out, st, err := s.Save(cmd.Context())
	for i := 1; err != nil && i <= editRetries; i++ {
		fmt.Printf("[!] %v, retrying (%d/%d)\n", err, i, editRetries)
		out, st, err = s.RetrySave(cmd.Context())
	}
	printStatus(st)
	if err != nil {
		return err
	}
	fmt.Printf("[+++] Saved %s (%d objects)\n", path, len(out.Objects))
	return nil
}
