package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/folio/internal/profile"
)

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show [section]",
	Short: "Print the document or one section as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetBool("summary")
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		section := ""
		if len(args) == 1 {
			section = args[0]
		}
		env.sync(cmd.Context())
		return show(env.profile.Snapshot(), section, summary, cmd.OutOrStdout())
	},
}

func init() {
	showCmd.Flags().Bool("summary", false, "print a short plain-text summary instead of JSON")
}

func show(doc profile.Document, section string, summary bool, w io.Writer) error {
	if summary {
		_, err := fmt.Fprintln(w, profile.Summary(doc))
		return err
	}
	if section == "" {
		return writeJSON(w, doc)
	}
	info, ok := profile.Lookup(section)
	if !ok {
		return fmt.Errorf("%w: %q", profile.ErrUnknownSection, section)
	}
	raw, ok := doc.Raw(section)
	if !ok {
		if info.Kind == profile.KindRecord {
			raw = json.RawMessage("{}")
		} else {
			raw = json.RawMessage("[]")
		}
	}
	return writeJSON(w, raw)
}

// --- set ---

var setCmd = &cobra.Command{
	Use:   "set hero.<field> <value>",
	Short: "Set one hero field",
	Long: `Set one hero field, keeping the others.

Examples:
  folio set hero.tagline "Backend engineer"
  folio set hero.resumeUrl https://example.com/cv.pdf`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, ok := strings.CutPrefix(args[0], profile.KeyHero+".")
		if !ok || field == "" {
			return fmt.Errorf("expected hero.<field>, got %q", args[0])
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			if err := m.SetHeroField(field, args[1]); err != nil {
				return err
			}
			printSuccess("Set hero.%s", field)
			return nil
		})
	},
}

// --- skills ---

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Replace the skill lists from comma-separated input",
	Long: `Replace the technical and soft skill lists. A list that is not given keeps its value.

Example:
  folio skills --technical "Go, SQL, Kubernetes" --soft "Mentoring, Writing"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("technical") && !cmd.Flags().Changed("soft") {
			return fmt.Errorf("one of --technical or --soft is required")
		}
		technical, _ := cmd.Flags().GetString("technical")
		soft, _ := cmd.Flags().GetString("soft")
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			doc := m.Snapshot()
			if !cmd.Flags().Changed("technical") {
				technical = strings.Join(doc.TechnicalSkills(), ",")
			}
			if !cmd.Flags().Changed("soft") {
				soft = strings.Join(doc.SoftSkills(), ",")
			}
			if err := m.SetSkills(technical, soft); err != nil {
				return err
			}
			printSuccess("Skills updated")
			return nil
		})
	},
}

func init() {
	skillsCmd.Flags().String("technical", "", "comma-separated technical skills")
	skillsCmd.Flags().String("soft", "", "comma-separated soft skills")
}

// --- item ---

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Add, remove, move or change records of a list section",
}

var itemAddCmd = &cobra.Command{
	Use:   "add <section>",
	Short: "Append a record (empty unless --json is given)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("json")
		var item json.RawMessage
		if raw != "" {
			item = json.RawMessage(raw)
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			i, err := m.AppendItem(args[0], item)
			if err != nil {
				return err
			}
			printSuccess("Added %s[%d]", args[0], i)
			return nil
		})
	},
}

var itemRemoveCmd = &cobra.Command{
	Use:   "remove <section> <index>",
	Short: "Remove a record; later records shift down",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			if err := m.RemoveItem(args[0], index); err != nil {
				return err
			}
			printSuccess("Removed %s[%d]", args[0], index)
			return nil
		})
	},
}

var itemMoveCmd = &cobra.Command{
	Use:   "move <section> <from> <to>",
	Short: "Move a record to a new position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		to, err := parseIndex(args[2])
		if err != nil {
			return err
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			if err := m.MoveItem(args[0], from, to); err != nil {
				return err
			}
			printSuccess("Moved %s[%d] to %d", args[0], from, to)
			return nil
		})
	},
}

var itemSetCmd = &cobra.Command{
	Use:   "set <section> <index> <field> <value>",
	Short: "Set one field of a record",
	Long: `Set one field of a record. List fields take comma-separated values,
"points" takes one entry per line, and a JSON array or object is stored as is.

Examples:
  folio item set experiences 0 title "Staff Engineer"
  folio item set petProjects 2 technologies "Go, SQLite"`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, field := args[0], args[2]
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		v, err := profile.FieldValue(key, field, args[3])
		if err != nil {
			return err
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			if err := m.SetItemField(key, index, field, v); err != nil {
				return err
			}
			printSuccess("Set %s[%d].%s", key, index, field)
			return nil
		})
	},
}

func init() {
	itemAddCmd.Flags().String("json", "", "record to append, as a JSON object")
	itemCmd.AddCommand(itemAddCmd, itemRemoveCmd, itemMoveCmd, itemSetCmd)
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q: must be a non-negative integer", s)
	}
	return i, nil
}

// --- edit ---

var editCmd = &cobra.Command{
	Use:   "edit [section]",
	Short: "Open the document or one section in $EDITOR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		section := ""
		if len(args) == 1 {
			section = args[0]
			if _, ok := profile.Lookup(section); !ok {
				return fmt.Errorf("%w: %q", profile.ErrUnknownSection, section)
			}
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			return editInEditor(m, section)
		})
	},
}

func editInEditor(m *profile.Manager, section string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	var before strings.Builder
	if err := show(m.Snapshot(), section, false, &before); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp("", "folio-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(before.String()); err != nil {
		tmpFile.Close()
		return err
	}
	tmpFile.Close()

	editorCmd := exec.Command(editor, tmpPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}
	if string(edited) == before.String() {
		printStep("No changes")
		return nil
	}
	return applyEdited(m, section, edited)
}

// applyEdited validates edited JSON and stores it as the whole document or
// as one section.
func applyEdited(m *profile.Manager, section string, edited []byte) error {
	if section == "" {
		doc, err := profile.ParseDocument(edited)
		if err != nil {
			return err
		}
		if err := profile.Validate(doc); err != nil {
			return err
		}
		m.Update(doc)
		printSuccess("Document updated")
		return nil
	}

	if !json.Valid(edited) {
		return fmt.Errorf("%w: edited %s is not valid JSON", profile.ErrInvalidDocument, section)
	}
	next, err := m.Snapshot().With(section, json.RawMessage(edited))
	if err != nil {
		return err
	}
	if err := profile.Validate(next); err != nil {
		return err
	}
	m.Update(next)
	printSuccess("Updated %s", section)
	return nil
}

// --- project ---

var projectCmd = &cobra.Command{
	Use:   "project <index>",
	Short: "Show one pet project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("project not found")
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		env.sync(cmd.Context())
		p, ok := env.profile.Project(index)
		if !ok {
			return fmt.Errorf("project not found")
		}
		printProject(cmd.OutOrStdout(), p)
		return nil
	},
}

func printProject(w io.Writer, p profile.PetProject) {
	fmt.Fprintln(w, colorize(colorBold, p.Title))
	meta := make([]string, 0, 2)
	for _, s := range []string{p.Category, p.Date} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(meta, " · "))
	}
	for _, f := range []struct{ label, value string }{
		{"Description", p.Description},
		{"Problem", p.Problem},
		{"Solution", p.Solution},
		{"Implementation", p.Implementation},
		{"Results", p.Results},
		{"Audience", p.Audience},
		{"What makes it different", p.USP},
		{"Notes", p.AdditionalInfo},
		{"URL", p.URL},
		{"GitHub", p.GitHub},
	} {
		if f.value != "" {
			fmt.Fprintf(w, "\n%s\n  %s\n", colorize(colorCyan, f.label), f.value)
		}
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorCyan, "Features"))
		for _, f := range p.Features {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(p.Technologies) > 0 {
		fmt.Fprintf(w, "\n%s\n  %s\n", colorize(colorCyan, "Technologies"), strings.Join(p.Technologies, ", "))
	}
	if len(p.Media) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorCyan, "Media"))
		for i, m := range p.Media {
			kind := "image"
			if profile.IsVideo(m) {
				kind = "video"
			}
			if strings.HasPrefix(m, "data:") {
				m = "(inline data)"
			}
			fmt.Fprintf(w, "  [%d] %s %s\n", i, kind, m)
		}
	}
}

// --- media ---

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage a pet project's images and videos",
}

var mediaAddCmd = &cobra.Command{
	Use:   "add <project-index> <url-or-file>",
	Short: "Attach a URL or upload a file to a pet project",
	Long: `Attach media to a pet project. A URL is stored as is; a local file is uploaded
to the server, or embedded as a data URL with --inline.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		inline, _ := cmd.Flags().GetBool("inline")
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			ref, err := mediaRef(cmd.Context(), env, args[1], inline)
			if err != nil {
				return err
			}
			return addMedia(m, index, ref)
		})
	},
}

var mediaRemoveCmd = &cobra.Command{
	Use:   "remove <project-index> <media-index>",
	Short: "Detach media from a pet project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		mi, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			return removeMedia(m, index, mi)
		})
	},
}

func init() {
	mediaAddCmd.Flags().Bool("inline", false, "embed a local file as a data URL instead of uploading it")
	mediaCmd.AddCommand(mediaAddCmd, mediaRemoveCmd)
}

// mediaRef turns a command-line argument into the string stored in a
// project's media list.
func mediaRef(ctx context.Context, env *clientEnv, arg string, inline bool) (string, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	if !inline {
		a, err := uploadFile(ctx, env, arg)
		if err != nil {
			return "", err
		}
		return a.URL, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	ct := mediaTypeOf(arg, data)
	if ct == "" {
		return "", fmt.Errorf("%s is not an image or video", filepath.Base(arg))
	}
	return profile.DataURL(ct, data), nil
}

func addMedia(m *profile.Manager, index int, ref string) error {
	p, ok := m.Project(index)
	if !ok {
		return fmt.Errorf("petProjects[%d]: %w", index, profile.ErrIndexOutOfRange)
	}
	media := profile.Append(p.Media, ref)
	if err := m.SetItemField(profile.KeyPetProjects, index, "media", media); err != nil {
		return err
	}
	printSuccess("Added media [%d] to %s", len(media)-1, p.Title)
	return nil
}

func removeMedia(m *profile.Manager, index, mediaIndex int) error {
	p, ok := m.Project(index)
	if !ok {
		return fmt.Errorf("petProjects[%d]: %w", index, profile.ErrIndexOutOfRange)
	}
	media, err := profile.RemoveAt(p.Media, mediaIndex)
	if err != nil {
		return fmt.Errorf("media[%d]: %w", mediaIndex, err)
	}
	if err := m.SetItemField(profile.KeyPetProjects, index, "media", media); err != nil {
		return err
	}
	printSuccess("Removed media [%d] from %s", mediaIndex, p.Title)
	return nil
}

// --- document ---

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Import or export the whole document",
}

var documentImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the document with a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		if format == "" {
			format = formatOf(args[0])
		}
		doc, err := profile.DecodeSeed(data, format)
		if err != nil {
			return err
		}
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return env.edit(cmd.Context(), func(m *profile.Manager) error {
			m.Update(doc)
			printSuccess("Imported %d sections from %s", len(doc.Keys()), args[0])
			return nil
		})
	},
}

var documentExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the document as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = formatOf(output)
		}

		env, err := newClientEnv()
		if err != nil {
			return err
		}
		env.sync(cmd.Context())

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := exportDocument(w, env.profile.Snapshot(), format); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Document exported to %s", output)
		}
		return nil
	},
}

func init() {
	documentImportCmd.Flags().String("format", "", "json or yaml (default: from the file extension)")
	documentExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	documentExportCmd.Flags().String("format", "", "json or yaml (default: from the output extension, else json)")
	documentCmd.AddCommand(documentImportCmd, documentExportCmd)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func exportDocument(w io.Writer, doc profile.Document, format string) error {
	switch format {
	case "", "json":
		return writeJSON(w, doc)
	case "yaml", "yml":
		var tree map[string]any
		if err := json.Unmarshal(doc.Bytes(), &tree); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.New("format must be json or yaml")
	}
}
