package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/kubeopenapi"
)

// evaluator is satisfied by *jsonskema.Validator and *kubeopenapi.Validator.
type evaluator interface {
	Evaluate(inst any) jsonskema.Issues
}

// outputOptions are the flags shared by commands that validate instances.
type outputOptions struct {
	format     string
	jobs       int
	duplicates string
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "text", "output format: text or json")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "instances validated concurrently")
	cmd.Flags().StringVar(&o.duplicates, "duplicate-keys", "warn", "duplicate JSON keys: ignore, warn or error")
}

func (o *outputOptions) check() error {
	if o.format != "text" && o.format != "json" {
		return cliError{code: exitUsage, err: fmt.Errorf("unknown --format %q", o.format)}
	}
	switch o.duplicates {
	case "ignore", "warn", "error":
	default:
		return cliError{code: exitUsage, err: fmt.Errorf("unknown --duplicate-keys %q", o.duplicates)}
	}
	return nil
}

func newValidateCommand(a *app) *cobra.Command {
	var (
		schemaPath string
		refs       []string
		draftName  string
		allErrors  bool
		out        outputOptions
	)
	cmd := &cobra.Command{
		Use:   "validate -s schema.json [instance...]",
		Short: "Validate JSON or YAML instances against a schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.check(); err != nil {
				return err
			}
			opts := []jsonskema.Option{jsonskema.WithAllErrors(allErrors), jsonskema.WithLogger(a.log)}
			if draftName != "" {
				d, err := draft.Resolve(draftName)
				if err != nil {
					return cliError{code: exitUsage, err: err}
				}
				opts = append(opts, jsonskema.WithDraft(d.ID))
			}
			c := jsonskema.New(opts...)
			for _, r := range refs {
				doc, err := loadSchema(r)
				if err != nil {
					return cliError{code: exitUsage, err: err}
				}
				if err := c.RegisterSchema(doc, filepath.Base(r)); err != nil {
					return cliError{code: exitUsage, err: fmt.Errorf("%s: %w", r, err)}
				}
				a.log.Debug("registered reference", "file", r)
			}
			doc, err := loadSchema(schemaPath)
			if err != nil {
				return cliError{code: exitUsage, err: err}
			}
			v, err := c.Compile(doc)
			if err != nil {
				return cliError{code: exitUsage, err: fmt.Errorf("%s: %w", schemaPath, err)}
			}
			a.log.Debug("compiled schema", "file", schemaPath, "draft", v.Draft().Name)
			return validateAll(cmd.OutOrStdout(), a.log, v, args, out)
		},
	}
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "schema document (JSON or YAML)")
	cmd.Flags().StringArrayVarP(&refs, "ref", "r", nil, "additional schema resolvable by file name (repeatable)")
	cmd.Flags().StringVar(&draftName, "draft", "", "draft for schemas without $schema (6, 7, 2019-09, 2020-12)")
	cmd.Flags().BoolVar(&allErrors, "all-errors", false, "report every failing keyword")
	out.bind(cmd)
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newCRDCommand(a *app) *cobra.Command {
	var (
		bundle   string
		kind     string
		opts     kubeopenapi.Options
		strict   bool
		preserve bool
		out      outputOptions
	)
	cmd := &cobra.Command{
		Use:   "crd -f bundle.yaml -k Kind [instance...]",
		Short: "Validate custom resources against a CustomResourceDefinition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.check(); err != nil {
				return err
			}
			if strict && preserve {
				return cliError{code: exitUsage, err: errors.New("--strict-unknown and --preserve-unknown are exclusive")}
			}
			switch {
			case strict:
				opts.Unknown = kubeopenapi.UnknownStrict
			case preserve:
				opts.Unknown = kubeopenapi.UnknownPreserve
			}
			data, err := os.ReadFile(bundle)
			if err != nil {
				return cliError{code: exitUsage, err: err}
			}
			v, d, err := kubeopenapi.CompileCRD(data, kind, opts, jsonskema.New(jsonskema.WithLogger(a.log)))
			if d != nil {
				for _, w := range d.Warnings() {
					a.log.Warn("crd import", "kind", kind, "warning", w)
				}
			}
			if err != nil {
				return cliError{code: exitUsage, err: fmt.Errorf("%s: %w", bundle, err)}
			}
			return validateAll(cmd.OutOrStdout(), a.log, v, args, out)
		},
	}
	cmd.Flags().StringVarP(&bundle, "file", "f", "", "YAML bundle holding the CRD")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "spec.names.kind of the CRD")
	cmd.Flags().StringVar(&opts.Version, "version", "", "CRD version (default: storage version)")
	cmd.Flags().BoolVar(&opts.EnableEmbeddedChecks, "embedded", false, "check x-kubernetes-embedded-resource fields")
	cmd.Flags().BoolVar(&opts.StrictYAML, "strict-yaml", false, "reject duplicate keys in the bundle")
	cmd.Flags().BoolVar(&strict, "strict-unknown", false, "reject fields the schema does not declare")
	cmd.Flags().BoolVar(&preserve, "preserve-unknown", false, "accept undeclared fields everywhere")
	out.bind(cmd)
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

// loadSchema reads a schema document; YAML is recognised by extension.
func loadSchema(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		doc, err := jsonskema.DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc, nil
	}
	doc, err := jsonskema.DecodeJSON(data, jsonskema.DecodeOpt{NumberMode: jsonskema.NumberJSONNumber, OnDuplicateKey: jsonskema.Error})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

type result struct {
	Instance string      `json:"instance"`
	Valid    bool        `json:"valid"`
	Issues   []issueJSON `json:"issues,omitempty"`
}

type issueJSON struct {
	Path       string         `json:"path"`
	Code       string         `json:"code"`
	Keyword    string         `json:"keyword,omitempty"`
	SchemaPath string         `json:"schemaPath,omitempty"`
	Message    string         `json:"message"`
	Params     map[string]any `json:"params,omitempty"`
}

// validateAll validates every instance concurrently and writes the results in
// argument order.
func validateAll(w io.Writer, log *slog.Logger, v evaluator, paths []string, o outputOptions) error {
	results := make([]result, len(paths))
	var g errgroup.Group
	if o.jobs > 0 {
		g.SetLimit(o.jobs)
	}
	for i, p := range paths {
		g.Go(func() error {
			inst, iss, err := loadInstance(p, o.duplicates, log)
			if err != nil {
				return cliError{code: exitUsage, err: err}
			}
			if iss == nil {
				iss = v.Evaluate(inst)
			}
			results[i] = toResult(p, iss)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}
	if err := writeResults(w, results, o.format); err != nil {
		return cliError{code: exitUsage, err: err}
	}
	log.Debug("validated", "instances", len(results), "invalid", invalid)
	if invalid > 0 {
		return cliError{code: exitInvalid, err: fmt.Errorf("%d of %d instances invalid", invalid, len(results))}
	}
	return nil
}

// loadInstance decodes one instance. Decoding failures come back as issues so
// they are reported like validation failures; I/O errors are returned.
func loadInstance(path, duplicates string, log *slog.Logger) (any, jsonskema.Issues, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, err
	}
	var inst any
	if isYAML(path) {
		inst, err = jsonskema.DecodeYAML(data)
	} else {
		opt := jsonskema.DecodeOpt{
			NumberMode: jsonskema.NumberJSONNumber,
			OnWarning: func(is jsonskema.Issue) {
				log.Warn("duplicate key", "instance", path, "path", is.Path)
			},
		}
		switch duplicates {
		case "warn":
			opt.OnDuplicateKey = jsonskema.Warn
		case "error":
			opt.OnDuplicateKey = jsonskema.Error
		}
		inst, err = jsonskema.DecodeJSON(data, opt)
	}
	if err != nil {
		if iss, ok := jsonskema.AsIssues(err); ok {
			return nil, iss, nil
		}
		return nil, nil, err
	}
	return inst, nil, nil
}

func toResult(path string, iss jsonskema.Issues) result {
	r := result{Instance: path, Valid: len(iss) == 0}
	for _, it := range iss {
		r.Issues = append(r.Issues, issueJSON{
			Path:       it.Path,
			Code:       it.Code,
			Keyword:    it.Keyword,
			SchemaPath: it.SchemaPath,
			Message:    it.Message,
			Params:     it.Params,
		})
	}
	return r
}

func writeResults(w io.Writer, results []result, format string) error {
	if format == "json" {
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "ok   %s\n", r.Instance)
			continue
		}
		fmt.Fprintf(w, "FAIL %s\n", r.Instance)
		for _, it := range r.Issues {
			fmt.Fprintf(w, "  %s: %s (%s) %s\n", it.Path, it.Code, it.Keyword, it.Message)
		}
	}
	return nil
}
