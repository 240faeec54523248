package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/wire"
)

func plantWire(name, plantName string) *wire.Record {
	return &wire.Record{
		Name:   name,
		Type:   string(models.TypePlant),
		Fields: map[string]wire.Field{models.FieldPlantName: wire.StringField(plantName)},
	}
}

func TestUpsert_InsertThenPopulateInPlace(t *testing.T) {
	g := New()

	first, err := g.Upsert(plantWire("p1", "Basil"))
	require.NoError(t, err)
	require.Equal(t, 1, g.Len())

	second, err := g.Upsert(plantWire("p1", "Thai Basil"))
	require.NoError(t, err)

	require.Same(t, first, second, "upsert must preserve instance identity")
	require.Equal(t, "Thai Basil", first.Body.(*models.Plant).Name)
	require.Equal(t, 1, g.Len())
}

func TestUpsert_UnknownType(t *testing.T) {
	g := New()
	_, err := g.Upsert(&wire.Record{Name: "x", Type: "House"})
	require.ErrorIs(t, err, models.ErrUnknownType)
	require.Equal(t, 0, g.Len())
}

func TestUpsert_ResolvesReferencesAgainstRegistry(t *testing.T) {
	g := New()

	plant, err := g.Upsert(plantWire("p1", "Basil"))
	require.NoError(t, err)

	note, err := g.Upsert(&wire.Record{
		Name: "n1",
		Type: string(models.TypeNote),
		Fields: map[string]wire.Field{
			models.FieldNoteTitle: wire.StringField("repotting"),
			models.FieldNotePlant: wire.ReferenceField("p1"),
		},
	})
	require.NoError(t, err)
	require.Same(t, plant, note.Body.(*models.Note).Plant)
}

func TestByType_InsertionOrderAndRestartable(t *testing.T) {
	g := New()
	for i := 0; i < 3; i++ {
		_, err := g.Upsert(plantWire(fmt.Sprintf("p%d", i), fmt.Sprintf("plant-%d", i)))
		require.NoError(t, err)
	}
	_, err := g.Upsert(&wire.Record{Name: "n1", Type: string(models.TypeNote), Fields: map[string]wire.Field{}})
	require.NoError(t, err)

	seq := g.ByType(models.TypePlant)

	collect := func() []string {
		var names []string
		for rec := range seq {
			names = append(names, rec.Body.(*models.Plant).Name)
		}
		return names
	}

	require.Equal(t, []string{"plant-0", "plant-1", "plant-2"}, collect())
	require.Equal(t, []string{"plant-0", "plant-1", "plant-2"}, collect(), "sequence must be restartable")
}

func TestRemove_Idempotent(t *testing.T) {
	g := New()
	rec, err := g.Upsert(plantWire("p1", "Basil"))
	require.NoError(t, err)

	g.Remove(rec)
	require.Equal(t, 0, g.Len())
	require.Nil(t, g.Find("p1"))

	g.Remove(rec) // no-op
	require.Equal(t, 0, g.Len())
}

func TestUnbind_ClearsRemoteIdentityButKeepsRecord(t *testing.T) {
	g := New()
	rec, err := g.Upsert(plantWire("p1", "Basil"))
	require.NoError(t, err)

	g.Unbind(rec)
	require.False(t, rec.Saved())
	require.Nil(t, g.Find("p1"))
	require.Equal(t, 1, g.Len())
}

func TestAdd_ReindexesAfterSaveAssignsRemoteName(t *testing.T) {
	g := New()
	rec := models.NewPlant("Basil")
	g.Add(rec)
	require.Equal(t, 1, g.Len())

	rec.RemoteName = "p1"
	g.Add(rec)
	require.Equal(t, 1, g.Len())
	require.Same(t, rec, g.Find("p1"))
}

func TestConcurrentUpserts(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				name := fmt.Sprintf("p%d", j%10)
				_, err := g.Upsert(plantWire(name, "Basil"))
				require.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 10, g.Len(), "one merged entry per remote name")
}
