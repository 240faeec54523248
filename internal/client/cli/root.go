package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) status() string {
	if !a.isLoggedIn() {
		return ""
	}
	id := a.actorID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("(%s)", id)
}

func (a *App) Root(ctx context.Context) {
	fmt.Println("Garden sync client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("garden %s> ", a.status())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				fmt.Println("Available commands: register, login, exit")
			case "register":
				a.register(ctx)
			case "login":
				a.login(ctx)
			case "exit", "quit":
				return
			default:
				fmt.Println("Login first. Commands: register, login, exit")
			}
			continue
		}

		switch cmd {
		case "help":
			fmt.Println("Available commands: setup, plants, addplant, addnote, addphoto, delete, share, accept, sync, watch, exit")
		case "setup":
			a.setup(ctx)
		case "plants":
			a.listPlants(ctx)
		case "addplant":
			a.addPlant(ctx)
		case "addnote":
			a.addNote(ctx)
		case "addphoto":
			a.addPhoto(ctx)
		case "delete":
			a.deletePlant(ctx)
		case "share":
			a.sharePlant(ctx)
		case "accept":
			a.acceptShare(ctx)
		case "sync":
			a.sync(ctx)
		case "watch":
			a.watch(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
