package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-flowx/model"
	"github.com/goliatone/go-flowx/upload"
	"github.com/spf13/cobra"
)

// UploadOptions holds the upload command flags.
type UploadOptions struct {
	*RootOptions
	Entity   string
	EntityID int64
	Output   string
}

// NewUploadCommand uploads files and downloads them back.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UploadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files and attach them to a project, task or post",
		Long: `Upload every file concurrently through presigned URLs. Files that finish
stay attached even when another file fails.`,
		Example: `  flowx upload --entity task --id 42 notes.md diagram.png`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Entity, "entity", "task", "project, task or post")
	cmd.Flags().Int64Var(&opts.EntityID, "id", 0, "id of the record to attach to (required)")
	_ = cmd.MarkFlagRequired("id")

	download := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), cmd, opts, args)
		},
	}
	download.Flags().StringVarP(&opts.Output, "output", "o", "", "destination path (required)")
	_ = download.MarkFlagRequired("output")

	cmd.AddCommand(download)
	return cmd
}

func runUpload(ctx context.Context, cmd *cobra.Command, opts *UploadOptions, args []string) error {
	target := upload.Target{EntityType: model.EntityType(strings.ToUpper(opts.Entity)), EntityID: opts.EntityID}
	if err := target.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid target", err)
	}
	sources, closeFiles, err := openSources(args)
	if err != nil {
		return err
	}
	defer closeFiles()

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	out := formatter(cmd, opts.RootOptions)
	c.Uploader().Observe(func(ev upload.Event) {
		out.VerboseLog("%s: %s %d%%", ev.Name, ev.State, ev.Percent)
	})

	files, err := c.Uploader().Upload(ctx, target, sources)
	if err != nil && len(files) == 0 {
		return WrapExitError(ExitFailure, "upload failed", err)
	}

	rows := make([][]string, 0, len(args))
	for _, src := range sources {
		rows = append(rows, []string{src.Name, string(c.Uploader().State(src.Name)), strconv.FormatInt(src.Size, 10)})
	}
	summary := fmt.Sprintf("Uploaded %s of %d", count(len(files), "file"), len(sources))
	if err != nil {
		_ = out.Table(summary, files, []string{"FILE", "STATE", "BYTES"}, rows)
		return WrapExitError(ExitFailure, "some files failed to upload", err)
	}
	return out.Table(summary, files, []string{"FILE", "STATE", "BYTES"}, rows)
}

func runDownload(ctx context.Context, cmd *cobra.Command, opts *UploadOptions, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	f, err := os.Create(filepath.Clean(opts.Output))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}
	defer f.Close()

	n, err := c.Uploader().Download(ctx, id, f)
	if err != nil {
		return WrapExitError(ExitFailure, "download failed", err)
	}
	return formatter(cmd, opts.RootOptions).Success(fmt.Sprintf("Wrote %d bytes to %s", n, opts.Output), nil)
}

// openSources opens paths as upload sources. The returned func closes them.
func openSources(paths []string) ([]upload.Source, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	sources := make([]upload.Source, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(filepath.Clean(p))
		if err != nil {
			closeAll()
			return nil, nil, WrapExitError(ExitCommandError, "failed to open attachment", err)
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, WrapExitError(ExitCommandError, "failed to stat attachment", err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		sources = append(sources, upload.Source{
			Name:        filepath.Base(p),
			ContentType: contentType,
			Size:        info.Size(),
			Body:        f,
		})
	}
	return sources, closeAll, nil
}
