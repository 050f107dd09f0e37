package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tasktracker/internal/admin"
)

func main() {

	ctx := context.Background()
	app := admin.NewApp(os.Stdin, os.Stdout, int(os.Stdin.Fd()))

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
