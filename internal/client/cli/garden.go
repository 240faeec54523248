package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/models"
)

func (a *App) listPlants(ctx context.Context) {
	for rec := range a.engine.Registry().ByType(models.TypePlant) {
		plant := rec.Body.(*models.Plant)
		marker := " "
		if rec.Shared {
			marker = "*"
		}
		fmt.Printf("%s %s (%d notes)\n", marker, plant.Name, len(plant.Notes))
		for _, note := range plant.Notes {
			n := note.Body.(*models.Note)
			fmt.Printf("    - %s: %s (%d photos)\n", n.Title, n.Body, len(n.Photos))
		}
	}
}

func (a *App) addPlant(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Plant name", os.Stdout)
	if err != nil || name == "" {
		fmt.Println("A plant needs a name.")
		return
	}

	rec := models.NewPlant(name)
	err = a.withRetry(ctx, classify.OpSave, func(ctx context.Context) error {
		return a.engine.Save(ctx, rec)
	})
	if err != nil {
		a.report(err, classify.OpSave)
		return
	}
	fmt.Println("Saved plant", name)
}

// findPlant locates a saved plant by its display name.
func (a *App) findPlant(name string) *models.Record {
	for rec := range a.engine.Registry().ByType(models.TypePlant) {
		if rec.Body.(*models.Plant).Name == name {
			return rec
		}
	}
	return nil
}

func (a *App) addNote(ctx context.Context) {
	plantName, err := GetSimpleText(a.reader, "Plant name", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	plant := a.findPlant(plantName)
	if plant == nil {
		fmt.Println("No such plant:", plantName)
		return
	}

	title, _ := GetSimpleText(a.reader, "Note title", os.Stdout)
	body, _ := GetSimpleText(a.reader, "Note text", os.Stdout)

	rec := models.NewNote(title, body, plant)
	err = a.withRetry(ctx, classify.OpSave, func(ctx context.Context) error {
		return a.engine.Save(ctx, rec)
	})
	if err != nil {
		a.report(err, classify.OpSave)
		return
	}
	fmt.Println("Saved note", title)
}

// findNote locates a saved note by title.
func (a *App) findNote(title string) *models.Record {
	for rec := range a.engine.Registry().ByType(models.TypeNote) {
		if rec.Body.(*models.Note).Title == title {
			return rec
		}
	}
	return nil
}

func (a *App) addPhoto(ctx context.Context) {
	noteTitle, err := GetSimpleText(a.reader, "Note title", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	note := a.findNote(noteTitle)
	if note == nil {
		fmt.Println("No such note:", noteTitle)
		return
	}

	path, _ := GetSimpleText(a.reader, "Image file path", os.Stdout)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Cannot read image:", err)
		return
	}

	key, err := a.uploadAsset(ctx, data)
	if err != nil {
		a.report(err, classify.OpSave)
		return
	}

	rec := models.NewPhoto(key, key, note)
	err = a.withRetry(ctx, classify.OpSave, func(ctx context.Context) error {
		return a.engine.Save(ctx, rec)
	})
	if err != nil {
		a.report(err, classify.OpSave)
		return
	}
	fmt.Println("Saved photo", key)
}

// uploadAsset obtains a presigned URL and PUTs the blob straight to object
// storage; only the storage key travels inside the record.
func (a *App) uploadAsset(ctx context.Context, data []byte) (string, error) {
	key, url, err := a.container.Assets.UploadURL(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("asset upload failed with status %d", resp.StatusCode)
	}
	return key, nil
}

func (a *App) deletePlant(ctx context.Context) {
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

	err = a.withRetry(ctx, classify.OpDelete, func(ctx context.Context) error {
		return a.engine.Delete(ctx, plant)
	})
	if err != nil {
		a.report(err, classify.OpDelete)
		return
	}
	fmt.Println("Deleted", name)
}
