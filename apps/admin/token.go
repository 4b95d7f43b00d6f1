package main

import (
	"fmt"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/session"
)

// issueToken prints a signed API token for the given identity.
func (cli *commandLine) issueToken(sub, name, email string, roles []string) error {
	for _, role := range roles {
		if !session.IsValidRole(role) {
			return errors.Errorf("unknown role %q", role)
		}
	}
	sess := session.Session{
		UserID: core.CleanString(sub),
		Name:   core.CleanString(name),
		Email:  core.CleanString(email, true /* lower */),
		Roles:  roles,
	}

	token, err := echoapi.GenerateToken(echoapi.NewClaims(sess, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}
