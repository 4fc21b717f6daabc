package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/assets"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/remote"
)

// uploadTargets are the hero fields an upload can be linked to directly.
var uploadTargets = []string{"profilePhoto", "resumeUrl", "thesisUrl"}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image, video or PDF to the server",
	Long: `Upload an image, video or PDF to the server (owner only) and print its URL.

Examples:
  folio upload ./portrait.jpg --set hero.profilePhoto
  folio upload ./cv.pdf --set hero.resumeUrl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("set")
		field := ""
		if target != "" {
			f, ok := strings.CutPrefix(target, profile.KeyHero+".")
			if !ok || !validUploadTarget(f) {
				return fmt.Errorf("--set must be one of hero.%s", strings.Join(uploadTargets, ", hero."))
			}
			field = f
		}

		env, err := newClientEnv()
		if err != nil {
			return err
		}
		a, err := uploadFile(cmd.Context(), env, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.URL)
		if field == "" {
			return nil
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			if err := m.SetHeroField(field, a.URL); err != nil {
				return err
			}
			printSuccess("Set hero.%s", field)
			return nil
		})
	},
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List or delete uploaded files",
}

var assetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		list, err := env.remote.Assets(cmd.Context())
		if err != nil {
			return err
		}
		return printAssets(cmd.OutOrStdout(), list)
	},
}

var assetsRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		if err := env.remote.DeleteAsset(cmd.Context(), args[0]); err != nil {
			if remote.IsNotFound(err) {
				return fmt.Errorf("asset %s not found", args[0])
			}
			return err
		}
		printSuccess("Deleted asset %s", args[0])
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("set", "", "also store the URL in a hero field (hero.profilePhoto, hero.resumeUrl, hero.thesisUrl)")
	assetsCmd.AddCommand(assetsListCmd, assetsRemoveCmd)
}

func validUploadTarget(field string) bool {
	for _, f := range uploadTargets {
		if f == field {
			return true
		}
	}
	return false
}

func uploadFile(ctx context.Context, env *clientEnv, path string) (remote.Asset, error) {
	if _, ok := env.gate.OwnerID(); !ok {
		return remote.Asset{}, fmt.Errorf("uploading needs the owner; run folio login")
	}
	f, err := os.Open(path)
	if err != nil {
		return remote.Asset{}, err
	}
	defer f.Close()

	printStep("Uploading %s", filepath.Base(path))
	a, err := env.remote.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return remote.Asset{}, fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}
	printSuccess("Uploaded %s (%s, %s)", filepath.Base(path), a.ContentType, humanize.IBytes(uint64(a.Size)))
	return a, nil
}

// mediaTypeOf returns the content type of an image or video file, or ""
// for anything else.
func mediaTypeOf(name string, data []byte) string {
	ct := assets.DetectType(name, data)
	if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") {
		return ct
	}
	return ""
}

func printAssets(w io.Writer, list []remote.Asset) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No uploads.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tURL")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.ContentType, humanize.IBytes(uint64(a.Size)), a.URL)
	}
	return tw.Flush()
}
