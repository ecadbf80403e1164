package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/openai"
)

// imageOutput controls where generated images are written.
type imageOutput struct {
	prefix string
	format string
}

func (o *imageOutput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.prefix, "output", "o", "image", "output path prefix; files are <prefix>-<n>.<format>")
	cmd.Flags().StringVar(&o.format, "format", "", "png, jpeg or webp (gpt-image-1)")
}

func (a *App) newImagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Generate and edit images",
	}
	cmd.AddCommand(
		a.newImagesGenerateCommand(),
		a.newImagesEditCommand(),
		a.newImagesVariationCommand(),
	)
	return cmd
}

func (a *App) newImagesGenerateCommand() *cobra.Command {
	var (
		out        imageOutput
		n          int
		size       string
		quality    string
		background string
	)
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate images from a prompt",
		Long: `Generate images from a prompt and save them as files.

Examples:
  oaikit images generate "a watercolor fox" -o fox
  oaikit images generate "a logo" --background transparent --format png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &core.ImageGenerateRequest{
				Prompt:     args[0],
				N:          n,
				Size:       core.ImageSize(size),
				Quality:    core.ImageQuality(quality),
				Format:     core.ImageFormat(out.format),
				Background: core.ImageBackground(background),
			}
			if err := validateImageFlags(req.Size, req.Quality, req.Format); err != nil {
				return err
			}
			model, err := a.modelOr(openai.ModelGPTImage1)
			if err != nil {
				return err
			}
			req.Model = model

			p, err := a.provider()
			if err != nil {
				return err
			}
			resp, err := a.client(p).GenerateImage(cmd.Context(), req)
			if err != nil {
				return providerErr(err)
			}
			return a.saveImages(resp, &out)
		},
	}
	out.bind(cmd)
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of images")
	cmd.Flags().StringVar(&size, "size", "", "e.g. 1024x1024, 1536x1024, auto")
	cmd.Flags().StringVar(&quality, "quality", "", "low, medium, high, standard, hd, auto")
	cmd.Flags().StringVar(&background, "background", "", "transparent, opaque or auto")
	return cmd
}

func (a *App) newImagesEditCommand() *cobra.Command {
	var (
		out  imageOutput
		mask string
		n    int
		size string
	)
	cmd := &cobra.Command{
		Use:   "edit <prompt> <image>...",
		Short: "Edit images with a prompt",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &core.ImageEditRequest{
				Prompt: args[0],
				N:      n,
				Size:   core.ImageSize(size),
			}
			if err := validateImageFlags(req.Size, "", ""); err != nil {
				return err
			}
			for _, path := range args[1:] {
				img, err := readImage(path)
				if err != nil {
					return err
				}
				req.Images = append(req.Images, img)
			}
			if mask != "" {
				m, err := readImage(mask)
				if err != nil {
					return err
				}
				req.Mask = &m
			}
			model, err := a.modelOr(openai.ModelGPTImage1)
			if err != nil {
				return err
			}
			req.Model = model

			p, err := a.directProvider()
			if err != nil {
				return err
			}
			resp, err := p.EditImage(cmd.Context(), req)
			if err != nil {
				return providerErr(err)
			}
			return a.saveImages(resp, &out)
		},
	}
	out.bind(cmd)
	cmd.Flags().StringVar(&mask, "mask", "", "PNG mask; transparent areas are edited")
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of images")
	cmd.Flags().StringVar(&size, "size", "", "output size")
	return cmd
}

func (a *App) newImagesVariationCommand() *cobra.Command {
	var (
		out  imageOutput
		n    int
		size string
	)
	cmd := &cobra.Command{
		Use:   "variation <image.png>",
		Short: "Create variations of a square PNG (dall-e-2)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateImageFlags(core.ImageSize(size), "", ""); err != nil {
				return err
			}
			img, err := readImage(args[0])
			if err != nil {
				return err
			}
			model, err := a.modelOr(openai.ModelDALLE2)
			if err != nil {
				return err
			}
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			resp, err := p.CreateImageVariation(cmd.Context(), &core.ImageVariationRequest{
				Model:          model,
				Image:          img,
				N:              n,
				Size:           core.ImageSize(size),
				ResponseFormat: "b64_json",
			})
			if err != nil {
				return providerErr(err)
			}
			if out.format == "" {
				out.format = string(core.ImageFormatPNG)
			}
			return a.saveImages(resp, &out)
		},
	}
	out.bind(cmd)
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of images")
	cmd.Flags().StringVar(&size, "size", "", "256x256, 512x512 or 1024x1024")
	return cmd
}

func validateImageFlags(size core.ImageSize, quality core.ImageQuality, format core.ImageFormat) error {
	if size != "" && !size.IsValid() {
		return validationErr("invalid --size %q", size)
	}
	if quality != "" && !quality.IsValid() {
		return validationErr("invalid --quality %q", quality)
	}
	if format != "" && !format.IsValid() {
		return validationErr("invalid --format %q", format)
	}
	return nil
}

func readImage(path string) (core.ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.ImageInput{}, validationErr("read image: %w", err)
	}
	return core.ImageInput{Data: data, Filename: filepath.Base(path)}, nil
}

// saveImages writes inline images to numbered files and prints URL results.
func (a *App) saveImages(resp *core.ImageResponse, out *imageOutput) error {
	ext := out.format
	if ext == "" {
		ext = string(core.ImageFormatPNG)
	}

	type saved struct {
		Path          string `json:"path,omitempty"`
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	}
	results := make([]saved, 0, len(resp.Data))
	for i, img := range resp.Data {
		s := saved{URL: img.URL, RevisedPrompt: img.RevisedPrompt}
		data, err := img.Bytes()
		if err != nil {
			return providerErr(fmt.Errorf("decode image %d: %w", i+1, err))
		}
		if data != nil {
			s.Path = fmt.Sprintf("%s-%d.%s", out.prefix, i+1, ext)
			if err := os.WriteFile(s.Path, data, 0o644); err != nil {
				return validationErr("write image: %w", err)
			}
		}
		results = append(results, s)
	}

	if a.jsonOutput {
		return a.printJSON(map[string]any{"created": resp.Created, "images": results})
	}
	for _, s := range results {
		if s.Path != "" {
			fmt.Fprintf(a.stdout, "saved %s\n", s.Path)
		} else {
			fmt.Fprintln(a.stdout, s.URL)
		}
		if s.RevisedPrompt != "" {
			fmt.Fprintf(a.stdout, "  revised prompt: %s\n", s.RevisedPrompt)
		}
	}
	return nil
}
