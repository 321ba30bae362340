package simulation

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Commands are protobuf Structs carrying an "op" field, so that they can be
// sent to the flock actor like any other message.
const (
	OpUpsertSpecies = "upsert_species"
	OpRemoveSpecies = "remove_species"
	OpInsertBird    = "insert_bird"
	OpClear         = "clear"
	OpSetCapacity   = "set_capacity"
	OpResize        = "resize"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadCommand     = errors.New("malformed command")
)

func command(op string, fields map[string]*structpb.Value) *structpb.Struct {
	if fields == nil {
		fields = make(map[string]*structpb.Value)
	}
	fields["op"] = structpb.NewStringValue(op)
	return &structpb.Struct{Fields: fields}
}

// UpsertSpeciesCommand adds or replaces a species.
func UpsertSpeciesCommand(id string, s behavior.Species) (*structpb.Struct, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	species, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return command(OpUpsertSpecies, map[string]*structpb.Value{
		"id":      structpb.NewStringValue(id),
		"species": structpb.NewStructValue(species),
	}), nil
}

// RemoveSpeciesCommand removes a species and its birds.
func RemoveSpeciesCommand(id string) *structpb.Struct {
	return command(OpRemoveSpecies, map[string]*structpb.Value{"id": structpb.NewStringValue(id)})
}

// InsertBirdCommand adds one bird at p. An empty id picks the species by weight.
func InsertBirdCommand(id string, p geometry.Vector2D) *structpb.Struct {
	return command(OpInsertBird, map[string]*structpb.Value{
		"id": structpb.NewStringValue(id),
		"x":  structpb.NewNumberValue(p.X),
		"y":  structpb.NewNumberValue(p.Y),
	})
}

func ClearCommand() *structpb.Struct {
	return command(OpClear, nil)
}

func SetCapacityCommand(n int) *structpb.Struct {
	return command(OpSetCapacity, map[string]*structpb.Value{"capacity": structpb.NewNumberValue(float64(n))})
}

// ResizeCommand changes the arena, typically after the window was resized.
func ResizeCommand(width, height float64) *structpb.Struct {
	return command(OpResize, map[string]*structpb.Value{
		"width":  structpb.NewNumberValue(width),
		"height": structpb.NewNumberValue(height),
	})
}

// Apply executes one command against the runner's flock.
func (r *Runner) Apply(cmd *structpb.Struct) error {
	fields := cmd.GetFields()
	op := fields["op"].GetStringValue()
	id := fields["id"].GetStringValue()
	r.logger.Debugf("applying command %q %v", op, cmd.AsMap())

	switch op {
	case OpUpsertSpecies:
		sv := fields["species"].GetStructValue()
		if sv == nil || id == "" {
			return fmt.Errorf("%w: %s needs an id and a species", ErrBadCommand, op)
		}
		b, err := json.Marshal(sv.AsMap())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadCommand, err)
		}
		var s behavior.Species
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrBadCommand, err)
		}
		return r.flock.AddSpeciesConfig(id, s)

	case OpRemoveSpecies:
		n := r.flock.RemoveSpeciesConfig(id)
		r.logger.Infof("species %q removed, %d birds went with it", id, n)
		return nil

	case OpInsertBird:
		if id == "" {
			var err error
			if id, err = r.flock.PickSpecies(); err != nil {
				return err
			}
		}
		p := geometry.Vector2D{X: fields["x"].GetNumberValue(), Y: fields["y"].GetNumberValue()}
		return r.flock.InsertBird(id, flock.WithPosition(p))

	case OpClear:
		r.flock.Clear()
		return nil

	case OpSetCapacity:
		return r.flock.SetCapacity(int(fields["capacity"].GetNumberValue()))

	case OpResize:
		return r.SetArena(fields["width"].GetNumberValue(), fields["height"].GetNumberValue())

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, op)
	}
}
