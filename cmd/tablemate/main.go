package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tablemate/tablemate/internal/client/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer application.Close()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if err := run(ctx, application, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tablemate <command> [flags]

commands:
  login              sign in with email and password
  login-bio          sign in with biometrics
  logout             sign out and clear credentials
  whoami             show the signed-in user
  enable-biometrics  opt in to biometric sign-in
  dinners            list upcoming dinners
  rsvp               respond to a dinner invite`)
}

func run(ctx context.Context, application *app.Application, command string, args []string) error {
	switch command {
	case "login":
		return cmdLogin(ctx, application, args)
	case "login-bio":
		return cmdLoginBio(ctx, application)
	case "logout":
		application.Session.SignOut(ctx)
		fmt.Println("signed out")
		return nil
	case "whoami":
		return cmdWhoami(ctx, application)
	case "enable-biometrics":
		return cmdEnableBiometrics(ctx, application)
	case "dinners":
		return cmdDinners(ctx, application)
	case "rsvp":
		return cmdRSVP(ctx, application, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdLogin(ctx context.Context, application *app.Application, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	_ = fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("login: -email is required")
	}

	fmt.Fprint(os.Stderr, "password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	if err := application.Session.SignIn(ctx, *email, password); err != nil {
		return err
	}

	// Remember the account for biometric sign-in if the user opted in earlier.
	if application.Biometrics().Preference(ctx) {
		application.Biometrics().SaveEmail(ctx, *email)
	}

	fmt.Println("signed in")
	return nil
}

func cmdLoginBio(ctx context.Context, application *app.Application) error {
	if err := application.Session.SignInWithBiometrics(ctx); err != nil {
		return err
	}
	fmt.Println("signed in")
	return nil
}

func cmdWhoami(ctx context.Context, application *app.Application) error {
	application.Session.Initialize(ctx)

	user := application.Session.User()
	if user == nil {
		fmt.Printf("status: %s\n", application.Session.Status())
		return nil
	}
	fmt.Printf("%s <%s> (%s)\n", user.Name, user.Email, user.Role)
	return nil
}

func cmdEnableBiometrics(ctx context.Context, application *app.Application) error {
	bio := application.Biometrics()

	if !bio.IsAvailable(ctx) {
		return fmt.Errorf("biometrics are not available on this device")
	}
	if !bio.Authenticate(ctx, "Enable biometric sign-in for TableMate") {
		return fmt.Errorf("biometric check failed")
	}

	application.Session.Initialize(ctx)
	user := application.Session.User()
	if user == nil || user.Email == "" {
		return fmt.Errorf("sign in first so the account email can be linked")
	}

	bio.SavePreference(ctx, true)
	bio.SaveEmail(ctx, user.Email)
	fmt.Println("biometric sign-in enabled")
	return nil
}

func cmdDinners(ctx context.Context, application *app.Application) error {
	application.Session.Initialize(ctx)

	dinners, err := application.Attendance.Upcoming(ctx)
	if err != nil {
		return err
	}
	if len(dinners) == 0 {
		fmt.Println("no upcoming dinners")
		return nil
	}
	for _, d := range dinners {
		fmt.Printf("%s  %-24s %s (%d/%d going)\n", d.ID, d.Title, d.StartsAt, d.Going, d.Capacity)
	}
	return nil
}

func cmdRSVP(ctx context.Context, application *app.Application, args []string) error {
	fs := flag.NewFlagSet("rsvp", flag.ExitOnError)
	dinnerID := fs.String("dinner", "", "dinner id")
	decline := fs.Bool("decline", false, "decline instead of attending")
	guests := fs.Int("guests", 0, "number of guests")
	_ = fs.Parse(args)

	if *dinnerID == "" {
		return fmt.Errorf("rsvp: -dinner is required")
	}

	application.Session.Initialize(ctx)
	if err := application.Attendance.RSVP(ctx, *dinnerID, !*decline, *guests); err != nil {
		return err
	}
	fmt.Println("rsvp recorded")
	return nil
}
