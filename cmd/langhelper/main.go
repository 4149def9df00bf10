package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/langhelper/internal/api"
	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "health":
		err = cmdHealth()
	case "login":
		err = cmdLogin(os.Args[2:])
	case "register":
		err = cmdRegister(os.Args[2:])
	case "logout":
		err = cmdLogout()
	case "whoami":
		err = cmdWhoami()
	case "auth":
		err = cmdAuth(os.Args[2:])
	case "history":
		err = cmdHistory(os.Args[2:])
	case "publish":
		err = cmdPublish(os.Args[2:])
	case "generate":
		err = cmdGenerate(os.Args[2:])
	case "upload":
		err = cmdUpload(os.Args[2:])
	case "practice":
		err = cmdPractice(os.Args[2:])
	case "exercises":
		err = cmdExercises()
	case "save":
		err = cmdSave(os.Args[2:])
	case "results":
		err = cmdResults()
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("langhelper %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}

// describeError turns client errors into messages for the terminal
func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return "the request timed out. The backend may be busy; try again in a moment."
	case errors.Is(err, domain.ErrAuthExpired):
		return "your session has expired. Run 'langhelper login' again."
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not logged in. Run 'langhelper login <email> <password>' first."
	case errors.Is(err, domain.ErrExerciseNotFound):
		return "exercise not found."
	case errors.Is(err, api.ErrRateLimited):
		return "too many generation requests; wait a second and retry."
	case errors.Is(err, domain.ErrTransport):
		return fmt.Sprintf("could not reach the backend (%v)", err)
	default:
		return err.Error()
	}
}

func printUsage() {
	fmt.Println(`langhelper - language exercises from the terminal

Usage:
  langhelper <command> [arguments]

Setup Commands:
  init                                  Create ~/.langhelper and a default config
  config                                Show current configuration
  health                                Check that the backend answers

Account Commands:
  login <email> <password>              Log in and store the token
  register <username> <email> <password>
                                        Create an account
  logout                                Forget the stored token
  whoami                                Show the logged-in account
  auth status                           Show token expiry

Exercise Commands:
  history list                          List your exercises (cached offline)
  history show <uuid>                   Show one exercise
  publish <uuid> on|off                 Share or unshare an exercise
  generate <kind> <level> <age> <topic> Generate an exercise (truefalse, abcd, open, dialogue)
  upload <file>                         Build an exercise from a document
  practice <uuid>                       Practice one of your exercises
  practice --public <uuid|link>         Practice a shared exercise
  practice --file <file>                Practice an exercise file (JSON or YAML)
  exercises                             List files in ~/.langhelper/exercises
  save <file|dir>                       Save exercise files to your history
  save --pending                        Retry saves that failed earlier
  results                               Show your practice scores

Integration Commands:
  mcp                                   Start the MCP server on stdio

Other:
  help                                  Show this help message
  version                               Show version information

Examples:
  langhelper login me@example.com secret
  langhelper generate truefalse B1 adult "travel"
  langhelper practice --public https://example.com/public/exercise/<uuid>`)
}
