package main

import (
	"context"
	"fmt"

	"github.com/trezcool/registrar/core/session"
)

func (cli *commandLine) postGrade(ctx context.Context, enrollmentID string, grade float64) error {
	enr, err := cli.enrSvc.PostGrade(ctx, session.System, enrollmentID, grade)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s: %s in %s (%.2f)\n", enr.ID, enr.Status, enr.OfferingID, grade)
	return nil
}
