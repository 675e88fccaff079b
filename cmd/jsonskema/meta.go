package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/draft"
)

// metaTarget validates schemas against the meta-schema their "$schema" names,
// or the forced draft.
type metaTarget struct {
	c      *jsonskema.Compiler
	forced *draft.Descriptor
}

func (m metaTarget) Evaluate(doc any) jsonskema.Issues {
	d := m.forced
	if d == nil {
		var err error
		if d, err = schemaDraft(doc); err != nil {
			return jsonskema.Issues{{Path: "/$schema", Code: jsonskema.CodeInvalidEnum, Keyword: "$schema", Message: err.Error()}}
		}
	}
	v, err := m.c.MetaValidator(d.ID)
	if err != nil {
		return jsonskema.Issues{{Path: "/", Code: jsonskema.CodeParseError, Keyword: "$schema", Message: err.Error()}}
	}
	return v.Evaluate(doc)
}

// schemaDraft picks the draft named by "$schema", falling back to 2020-12.
func schemaDraft(doc any) (*draft.Descriptor, error) {
	if m, ok := doc.(map[string]any); ok {
		if raw, ok := m["$schema"]; ok {
			s, _ := raw.(string)
			d, err := draft.Resolve(s)
			if err != nil && strings.Contains(s, "://") {
				// the "#" suffix of canonical URIs is optional
				if alt, e := draft.Resolve(strings.TrimSuffix(s, "#") + "#"); e == nil {
					return alt, nil
				}
				if alt, e := draft.Resolve(strings.TrimSuffix(s, "#")); e == nil {
					return alt, nil
				}
			}
			return d, err
		}
	}
	return draft.ResolveID(int(draft.Draft2020))
}

func newMetaCommand(a *app) *cobra.Command {
	var (
		draftName string
		out       outputOptions
	)
	cmd := &cobra.Command{
		Use:   "meta [-d draft] schema...",
		Short: "Validate schema documents against their draft meta-schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.check(); err != nil {
				return err
			}
			t := metaTarget{c: jsonskema.New(jsonskema.WithLogger(a.log))}
			if draftName != "" {
				d, err := draft.Resolve(draftName)
				if err != nil {
					return cliError{code: exitUsage, err: err}
				}
				t.forced = d
			}
			return validateAll(cmd.OutOrStdout(), a.log, t, args, out)
		},
	}
	cmd.Flags().StringVarP(&draftName, "draft", "d", "", "draft to check against (default: from $schema)")
	out.bind(cmd)
	return cmd
}

func newDraftsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List supported drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, d := range draft.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5d %-8s %s\n", d.ID, d.Name, d.URI)
			}
			return nil
		},
	}
}
