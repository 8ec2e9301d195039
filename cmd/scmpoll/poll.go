package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/scm"
	"github.com/drewdunne/scmpoll/internal/statestore"
)

// material is a named material configuration.
type material struct {
	Name   string
	Values map[string]string
}

// printer writes command results, optionally colored.
type printer struct {
	out io.Writer

	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

func newPrinter(out io.Writer, colored bool) *printer {
	if !colored {
		plain := func(a ...interface{}) string { return fmt.Sprint(a...) }
		return &printer{out: out, green: plain, yellow: plain, cyan: plain, gray: plain, red: plain}
	}
	return &printer{
		out:    out,
		green:  color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		gray:   color.New(color.FgHiBlack).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
	}
}

func (p *printer) revision(r scm.Revision, idKey string) {
	fmt.Fprintf(p.out, "%s %s %s\n", p.green("●"), p.cyan(r.Data[idKey]), r.Revision)
	fmt.Fprintf(p.out, "  %s %s\n", p.gray(r.Timestamp.UTC().Format(scm.TimestampLayout)), r.User)
	if r.RevisionComment != "" {
		fmt.Fprintf(p.out, "  %s\n", r.RevisionComment)
	}
	if title := r.Data[provider.KeyPRTitle]; title != "" {
		fmt.Fprintf(p.out, "  %s %s\n", p.gray("title:"), title)
	}
	for _, f := range r.ModifiedFiles {
		fmt.Fprintf(p.out, "  %s %s\n", p.gray(f.Action), f.FileName)
	}
}

func (p *printer) noChange(name string) {
	fmt.Fprintf(p.out, "%s %s\n", p.yellow("○"), p.gray("no new revision for "+name))
}

func (p *printer) failure(err error) {
	fmt.Fprintf(p.out, "%s %v\n", p.red("✗"), err)
}

// poll runs one poll of m against its stored state and records the result.
// The first poll of a material uses latest-revision, later ones
// latest-revisions-since.
func poll(ctx context.Context, plugin *scm.Plugin, store *statestore.Store, m material, workDir string, out *printer) error {
	conf := scm.ConfigurationFrom(m.Values)
	if errs := plugin.ValidateConfiguration(conf); len(errs) > 0 {
		return fmt.Errorf("%s: %s", errs[0].Key, errs[0].Message)
	}

	rec, err := store.Load(ctx, m.Name)
	switch {
	case errors.Is(err, statestore.ErrNotFound):
		rec = &statestore.Record{Name: m.Name}
	case err != nil:
		return err
	}

	var reported []scm.Revision
	if len(rec.SCMData) == 0 {
		resp, err := plugin.LatestRevision(ctx, &scm.LatestRevisionRequest{
			Configuration:   conf,
			FlyweightFolder: workDir,
		})
		if err != nil {
			return err
		}
		if resp.Revision != nil {
			reported = append(reported, *resp.Revision)
		}
		rec.SCMData = resp.SCMData
	} else {
		resp, err := plugin.LatestRevisionsSince(ctx, &scm.LatestRevisionsSinceRequest{
			Configuration:   conf,
			FlyweightFolder: workDir,
			SCMData:         rec.SCMData,
		})
		if err != nil {
			return err
		}
		reported = resp.Revisions
		rec.SCMData = resp.SCMData
	}

	idKey := plugin.Provider().IdentifierKey()
	if len(reported) == 0 {
		out.noChange(m.Name)
	} else {
		// Revisions are newest first; the newest is what checkout uses.
		rec.Revision = reported[0].Revision
		rec.Data = reported[0].Data
		for _, r := range reported {
			out.revision(r, idKey)
		}
	}

	// Save stamps the current time.
	rec.UpdatedAt = time.Time{}
	return store.Save(ctx, rec)
}

// checkoutMaterial checks out revision, or the last reported revision of m,
// into dest.
func checkoutMaterial(ctx context.Context, plugin *scm.Plugin, store *statestore.Store, m material, dest, revision string, out *printer) error {
	rev := scm.Revision{Revision: revision}

	rec, err := store.Load(ctx, m.Name)
	switch {
	case err == nil:
		if rev.Revision == "" || rev.Revision == rec.Revision {
			rev.Revision = rec.Revision
			rev.Data = rec.Data
		}
	case !errors.Is(err, statestore.ErrNotFound):
		return err
	}
	if rev.Revision == "" {
		return fmt.Errorf("no revision recorded for %s; poll first or pass -revision", m.Name)
	}

	resp, err := plugin.Checkout(ctx, &scm.CheckoutRequest{
		Configuration:     scm.ConfigurationFrom(m.Values),
		DestinationFolder: dest,
		Revision:          rev,
	})
	if err != nil {
		return err
	}
	for _, msg := range resp.Messages {
		fmt.Fprintf(out.out, "%s %s\n", out.green("✓"), msg)
	}
	return nil
}
