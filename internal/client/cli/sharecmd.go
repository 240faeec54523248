package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/wire"
)

func (a *App) sharePlant(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Plant name", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	plant := a.findPlant(name)
	if plant == nil {
		fmt.Println("No such plant:", name)
		return
	}

	title, _ := GetSimpleText(a.reader, "Share title (empty for default)", os.Stdout)

	err = a.withRetry(ctx, classify.OpShare, func(ctx context.Context) error {
		_, err := a.shares.Prepare(ctx, plant, title)
		return err
	})
	if err != nil {
		a.report(err, classify.OpShare)
	}
}

func (a *App) acceptShare(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Shared record name", os.Stdout)
	if err != nil || name == "" {
		fmt.Println("Need the shared record name from the invitation.")
		return
	}

	var rec *models.Record
	err = a.withRetry(ctx, classify.OpShare, func(ctx context.Context) error {
		var err error
		rec, err = a.shares.Accept(ctx, wire.ShareMetadata{RootRecordName: strings.TrimSpace(name)})
		return err
	})
	if err != nil {
		a.report(err, classify.OpShare)
		return
	}
	if rec != nil {
		fmt.Println("Accepted share, record type:", rec.Type())
	}
}
