package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/registrar/core/catalog"
)

var offeringColumns = []string{"ID", "SUBJECT", "NAME", "TERM", "CREDITS", "INSTRUCTOR", "SEATS"}

// importCatalog creates or updates the offerings listed in a YAML file, all or nothing.
func (cli *commandLine) importCatalog(ctx context.Context, path string) error {
	data, err := readFileFunc(path)
	if err != nil {
		return errors.Wrap(err, "reading catalog file")
	}

	var nos []catalog.NewOffering
	if err = yaml.Unmarshal(data, &nos); err != nil {
		return errors.Wrap(err, "parsing catalog file")
	}
	if len(nos) == 0 {
		return errors.Errorf("%s: no offerings found", path)
	}

	res, err := cli.catalogSvc.Import(ctx, nos)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d offering(s) created, %d updated\n", res.Created, res.Updated)
	return nil
}

// listOfferings prints the offerings as an aligned table on terminals, as tab separated values otherwise.
func (cli *commandLine) listOfferings(ctx context.Context, term string, onlyAvailable bool) error {
	filter := &catalog.QueryFilter{Term: term}
	var offs []catalog.Offering
	var err error
	if onlyAvailable {
		offs, err = cli.enrSvc.ListAvailable(ctx, filter)
	} else {
		offs, err = cli.catalogSvc.Query(ctx, filter)
	}
	if err != nil {
		return errors.Wrap(err, "querying offerings")
	}

	if isTerminalFunc(cli.outFd) {
		tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
		writeOfferings(tw, offs)
		return tw.Flush()
	}
	writeOfferings(cli.out, offs)
	return nil
}

func writeOfferings(w io.Writer, offs []catalog.Offering) {
	_, _ = fmt.Fprintln(w, strings.Join(offeringColumns, "\t"))
	for _, off := range offs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%d/%d\n",
			off.ID, off.SubjectCode, off.SubjectName, off.Term, off.Credits, off.Instructor, off.SeatsTaken, off.Capacity)
	}
}
