package main

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/app/services"
	"github.com/vmcmoto/motoportal/config"
	"github.com/vmcmoto/motoportal/pkg/imageopt"
	"github.com/vmcmoto/motoportal/pkg/storage"
	"github.com/vmcmoto/motoportal/pkg/workerpool"
)

func newPhotosCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "photos",
		Short:       "Manage the photos of a model",
		Annotations: adminOnly(),
	}
	cmd.AddCommand(newPhotosListCmd(app))
	cmd.AddCommand(newPhotosAddCmd(app))
	cmd.AddCommand(newPhotosRemoveCmd(app))
	cmd.AddCommand(newPhotosReorderCmd(app))
	cmd.AddCommand(newPhotosMoveCmd(app))
	cmd.AddCommand(newPhotosPrimaryCmd(app))
	return cmd
}

// photoSet loads the photo set of the model named by arg.
func (a *cli) photoSet(ctx context.Context, arg string) (*services.PhotoSet, error) {
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	set := services.NewPhotoSet(a.kern.Repo, id, nil,
		services.WithMaxBytes(config.PhotoMaxBytes()),
		services.WithPhotoEvents(a.kern.Bus),
	)
	if err := set.Load(ctx); err != nil {
		return nil, err
	}
	return set, nil
}

// motoadmin photos list ID [--q]
func newPhotosListCmd(app *cli) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list ID",
		Short: "List photos in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.photoSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printPhotos(cmd, set.Filter(query))
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "q", "", "filter by file name")
	return cmd
}

// motoadmin photos add ID FILE... [--disk local|s3] [--optimize]
func newPhotosAddCmd(app *cli) *cobra.Command {
	var (
		disk     string
		optimize bool
		maxDim   int
	)
	cmd := &cobra.Command{
		Use:   "add ID FILE...",
		Short: "Upload photos; a failing file does not stop the others",
		Long:  "Uploads files from the local filesystem, or from a configured storage disk with --disk.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			set, err := app.photoSet(ctx, args[0])
			if err != nil {
				return err
			}

			var src storage.Disk
			if disk != "" {
				if src, err = storage.Use(disk); err != nil {
					return err
				}
			}

			paths := args[1:]
			workers := 1
			if optimize {
				workers = runtime.NumCPU()
			}
			prepared := workerpool.Map(workers, paths, func(path string) (models.Upload, error) {
				return readUpload(ctx, src, path, optimize, maxDim)
			})

			uploads := make([]models.Upload, 0, len(paths))
			var failed int
			for i, r := range prepared {
				if r.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", paths[i], r.Err)
					failed++
					continue
				}
				uploads = append(uploads, r.Value)
			}

			for _, r := range set.AddAll(ctx, uploads) {
				if r.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "fail %s: %v\n", r.Name, r.Err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s -> photo %d\n", r.Name, r.Photo.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) not uploaded", failed, len(paths))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&disk, "disk", "", "read files from this storage disk (local, s3)")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "downscale and re-encode as JPEG before upload")
	cmd.Flags().IntVar(&maxDim, "max-dim", imageopt.DefaultMaxDim, "longest side in pixels with --optimize")
	return cmd
}

// readUpload reads path from src, or from the filesystem when src is nil.
// A content type that cannot be told from the extension is sniffed.
func readUpload(ctx context.Context, src storage.Disk, path string, optimize bool, maxDim int) (models.Upload, error) {
	var (
		data []byte
		err  error
	)
	if src != nil {
		data, err = src.Get(ctx, path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.Upload{}, err
	}

	name := filepath.Base(path)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	if optimize {
		small, err := imageopt.Optimize(data, imageopt.Options{MaxDim: maxDim})
		if err != nil {
			return models.Upload{}, err
		}
		data, name, ct = small, imageopt.JPEGName(name), "image/jpeg"
	}

	return models.Upload{
		Name:        name,
		ContentType: ct,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

// motoadmin photos remove ID PHOTO [--yes]
func newPhotosRemoveCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID PHOTO",
		Short: "Delete a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.photoSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			photoID, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := set.Remove(cmd.Context(), photoID, app.confirm(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted photo %d.\n", photoID)
			if _, ok := set.Primary(); !ok && set.Len() > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No primary photo left; pick one with: motoadmin photos primary")
			}
			return nil
		},
	}
}

// motoadmin photos reorder ID PHOTO...
func newPhotosReorderCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder ID PHOTO...",
		Short: "Set the display order; every photo id must be listed once",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.photoSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			if err := set.Reorder(cmd.Context(), ids); err != nil {
				return err
			}
			printPhotos(cmd, set.Photos())
			return nil
		},
	}
}

// motoadmin photos move ID FROM TO
func newPhotosMoveCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID FROM TO",
		Short: "Move the photo at position FROM to position TO (1-based)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.photoSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			from, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			if err := set.Move(cmd.Context(), from, to); err != nil {
				return err
			}
			printPhotos(cmd, set.Photos())
			return nil
		},
	}
}

// motoadmin photos primary ID PHOTO
func newPhotosPrimaryCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "primary ID PHOTO",
		Short: "Make a photo the primary one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.photoSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			photoID, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := set.SetPrimary(cmd.Context(), photoID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Photo %d is now primary.\n", photoID)
			return nil
		},
	}
}

func printPhotos(cmd *cobra.Command, photos []models.Photo) {
	out := cmd.OutOrStdout()
	if len(photos) == 0 {
		fmt.Fprintln(out, "No photos.")
		return
	}
	fmt.Fprintf(out, "%-4s  %-8s  %-40s  %10s  %s\n", "POS", "ID", "FILE", "BYTES", "PRIMARY")
	fmt.Fprintln(out, rule(78))
	for i, p := range photos {
		primary := ""
		if p.IsPrimary {
			primary = "*"
		}
		fmt.Fprintf(out, "%-4d  %-8d  %-40s  %10d  %s\n", i+1, p.ID, p.DisplayName(), p.FileSize, primary)
	}
}
