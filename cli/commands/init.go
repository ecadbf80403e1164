package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/cli/config"
	"github.com/petal-labs/oaikit/providers"
)

func (a *App) newInitCommand() *cobra.Command {
	var (
		force   bool
		baseURL string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write a commented starter config file for --profile (default openai) to
--config or ~/.oaikit/config.yaml.

A profile name that is not built in describes a custom OpenAI-compatible
endpoint and needs --base-url.

Examples:
  oaikit init
  oaikit init --profile groq
  oaikit init --profile vllm --base-url http://gpu-box:8000/v1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.DefaultConfigPath()
			}
			data, err := initData(a.profile, baseURL, a.model)
			if err != nil {
				return err
			}
			if err := writeConfigTemplate(path, data, force); err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "Created %s\n\nNext steps:\n", path)
			switch {
			case data.KeyOptional:
			case data.KeyEnv != "":
				fmt.Fprintf(a.stdout, "  export %s=<your-key>   (or: oaikit keys set %s)\n", data.KeyEnv, data.Profile)
			default:
				fmt.Fprintf(a.stdout, "  oaikit keys set %s\n", data.Profile)
			}
			fmt.Fprintln(a.stdout, `  oaikit chat --prompt "Hello"`)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "endpoint of a custom profile")
	return cmd
}

var profileNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func validateProfileName(name string) error {
	if name == "" {
		return validationErr("profile name cannot be empty")
	}
	if !profileNamePattern.MatchString(name) {
		return validationErr("invalid profile name %q: use lowercase letters, digits, '_' and '-', starting with a letter", name)
	}
	return nil
}

type configTemplateData struct {
	Profile     string
	BaseURL     string
	KeyEnv      string
	KeyOptional bool
	Model       string
	SearchDB    string
}

func initData(profile, baseURL, model string) (configTemplateData, error) {
	if err := validateProfileName(profile); err != nil {
		return configTemplateData{}, err
	}
	d := configTemplateData{Profile: profile, BaseURL: baseURL, Model: model, SearchDB: config.DefaultSearchDBPath()}
	if p, ok := providers.Lookup(profile); ok {
		d.KeyEnv = p.APIKeyEnv
		d.KeyOptional = p.KeyOptional
		if d.Model == "" {
			d.Model = string(p.DefaultModel)
		}
	} else if baseURL == "" {
		return d, validationErr("profile %q is not built in: pass --base-url (built in: %s)", profile, strings.Join(providers.List(), ", "))
	}
	return d, nil
}

func writeConfigTemplate(path string, data configTemplateData, force bool) error {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return validationErr("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return validationErr("%s already exists: use --force to overwrite", path)
	}
	if err != nil {
		return validationErr("create %s: %w", path, err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const configTemplate = `# oaikit configuration
default_profile: {{.Profile}}
{{- if .Model}}
default_model: {{.Model}}
{{- else}}
# default_model: gpt-4o-mini
{{- end}}

# max_retries: 3
# timeout: 60s

# Keys come from 'oaikit keys set <name>' or the profile's environment
# variable{{if .KeyEnv}} ({{.KeyEnv}}){{end}}. OPENAI_API_KEY always wins for the openai profile.
profiles:
  {{.Profile}}:
{{- if .BaseURL}}
    base_url: {{.BaseURL}}
{{- end}}
    api_key_ref: {{.Profile}}

search:
  db_path: {{.SearchDB}}
  # embedding_model: text-embedding-3-small

# personas:
#   reviewer: You review Go code. Be brief.
`
