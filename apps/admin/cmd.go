package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
	"github.com/trezcool/registrar/storage/database"
)

var (
	runMigrationsFunc = database.RunMigrations // mockable
	isTerminalFunc    = term.IsTerminal        // mockable
	readFileFunc      = os.ReadFile            // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sqlx.DB
	catalogSvc catalog.Service
	enrSvc     enrollment.Service
	out        io.Writer
	outFd      int // file descriptor of out, used for terminal detection
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                        - run a goose command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  importcatalog -file FILE                         - create or update offerings from a YAML file")
	_, _ = fmt.Fprintln(cli.out, "  offerings [-term TERM] [-available]              - list the offerings")
	_, _ = fmt.Fprintln(cli.out, "  issuetoken -sub ID [-name] [-email] -role ROLE... - print an API token")
	_, _ = fmt.Fprintln(cli.out, "  postgrade -enrollment ID -grade GRADE            - grade an enrollment")
}

// stringsFlag collects the values of a repeated flag.
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	importCmd := cli.newFlagSet("importcatalog")
	importFile := importCmd.String("file", "", "The YAML file listing the offerings.")

	offeringsCmd := cli.newFlagSet("offerings")
	offeringsTerm := offeringsCmd.String("term", "", "Only list the offerings of this term.")
	offeringsAvailable := offeringsCmd.Bool("available", false, "Only list the offerings with seats left.")

	tokenCmd := cli.newFlagSet("issuetoken")
	tokenSub := tokenCmd.String("sub", "", "The user ID.")
	tokenName := tokenCmd.String("name", "", "The user name.")
	tokenEmail := tokenCmd.String("email", "", "The user email, enrollment notices are sent to it.")
	var tokenRoles stringsFlag
	tokenCmd.Var(&tokenRoles, "role", "A role of the user, e.g. student: or admin:. Repeatable.")

	gradeCmd := cli.newFlagSet("postgrade")
	gradeEnrollment := gradeCmd.String("enrollment", "", "The enrollment ID.")
	gradeValue := gradeCmd.String("grade", "", "The grade, between 0 and 10.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "importcatalog":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importCatalog(ctx, *importFile)
	case "offerings":
		if err := offeringsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listOfferings(ctx, *offeringsTerm, *offeringsAvailable)
	case "issuetoken":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" || len(tokenRoles) == 0 {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(*tokenSub, *tokenName, *tokenEmail, tokenRoles)
	case "postgrade":
		if err := gradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gradeEnrollment == "" || *gradeValue == "" {
			gradeCmd.Usage()
			return errHelp
		}
		grade, err := strconv.ParseFloat(*gradeValue, 64)
		if err != nil {
			return errors.Errorf("invalid grade %q", *gradeValue)
		}
		return cli.postGrade(ctx, *gradeEnrollment, grade)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return runMigrationsFunc(ctx, cli.db.DB, cli.conf.Database.Engine, args[0], args[1:]...)
}
