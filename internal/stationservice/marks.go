package stationservice

import (
	"context"
	"fmt"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/notify"
	"github.com/starford/waystation/internal/waystation"
)

// AddMark parses input into a new mark on the current Waystation. A
// non-empty name overrides the parsed name.
func (s *Service) AddMark(ctx context.Context, input, name string) (models.Waystation, models.Mark, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return models.Waystation{}, models.Mark{}, err
	}
	mark := s.engine.MakeMark(input)
	if name != "" {
		mark.Name = name
	}
	w, err := s.engine.AddMark(cur, mark)
	if err != nil {
		return models.Waystation{}, models.Mark{}, err
	}
	w, err = s.commit(ctx, notify.Event{Kind: notify.NewMark, Waystation: w, Mark: &mark})
	if err != nil {
		return models.Waystation{}, models.Mark{}, err
	}
	return w, markByID(w, mark.ID), nil
}

// EditMark sets one field of the mark at index.
func (s *Service) EditMark(ctx context.Context, index int, field waystation.MarkField, value any) (models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, index)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err := s.engine.EditMark(cur, mark, field, value)
	if err != nil {
		return models.Waystation{}, err
	}
	edited := markByID(w, mark.ID)
	return s.commit(ctx, notify.Event{Kind: notify.EditMark, Waystation: w, Mark: &edited})
}

// RemoveMark drops the mark at index.
func (s *Service) RemoveMark(ctx context.Context, index int) (models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, index)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err := s.engine.RemoveMarkByIndex(cur, index)
	if err != nil {
		return models.Waystation{}, err
	}
	return s.commit(ctx, notify.Event{Kind: notify.EditWaystation, Waystation: w, Mark: &mark})
}

// ReorderMarks moves the mark at from to position to.
func (s *Service) ReorderMarks(ctx context.Context, from, to int) (models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, from)
	if err != nil {
		return models.Waystation{}, err
	}
	if _, ok := waystation.MarkAt(cur, to); !ok {
		return models.Waystation{}, fmt.Errorf("%w: %d", apperr.ErrInvalidIndex, to)
	}
	w, err := s.engine.ReorderMarks(cur, from, to)
	if err != nil {
		return models.Waystation{}, err
	}
	return s.commit(ctx, notify.Event{Kind: notify.EditWaystation, Waystation: w, Mark: &mark})
}

// MoveMarkUp moves the mark at index one position towards the start.
func (s *Service) MoveMarkUp(ctx context.Context, index int) (models.Waystation, error) {
	return s.move(ctx, index, s.engine.MoveMarkUp)
}

// MoveMarkDown moves the mark at index one position towards the end.
func (s *Service) MoveMarkDown(ctx context.Context, index int) (models.Waystation, error) {
	return s.move(ctx, index, s.engine.MoveMarkDown)
}

func (s *Service) move(ctx context.Context, index int, op func(models.Waystation, models.Mark) (models.Waystation, error)) (models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, index)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err := op(cur, mark)
	if err != nil {
		return models.Waystation{}, err
	}
	return s.commit(ctx, notify.Event{Kind: notify.EditWaystation, Waystation: w, Mark: &mark})
}

// AddNote attaches a note to the mark at index, named "Note #n".
func (s *Service) AddNote(ctx context.Context, index int, text string) (models.Waystation, error) {
	return s.addResource(ctx, index, models.ResourceNote, text, func(m models.Mark) string {
		return fmt.Sprintf("Note #%d", m.CountResources(models.ResourceNote)+1)
	})
}

// AddURL attaches an http(s) URL to the mark at index, named "Url #n".
func (s *Service) AddURL(ctx context.Context, index int, raw string) (models.Waystation, error) {
	if err := validURL(raw); err != nil {
		return models.Waystation{}, err
	}
	return s.addResource(ctx, index, models.ResourceURL, raw, func(m models.Mark) string {
		return fmt.Sprintf("Url #%d", m.CountResources(models.ResourceURL)+1)
	})
}

// AddStation links the backup id to the mark at index, named after the
// linked Waystation.
func (s *Service) AddStation(ctx context.Context, index int, id string) (models.Waystation, error) {
	linked, err := s.docs.Backup(id)
	if err != nil {
		return models.Waystation{}, err
	}
	return s.addResource(ctx, index, models.ResourceWaystation, linked.ID, func(models.Mark) string {
		return linked.Name
	})
}

// AddSubway creates a new Waystation branching off the mark at index, links
// it to that mark and, when open is set, makes it current. The default name
// is "From: <mark name>:<parent id>". It returns the updated parent and the
// new Waystation.
func (s *Service) AddSubway(ctx context.Context, index int, name string, open bool) (models.Waystation, models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, index)
	if err != nil {
		return models.Waystation{}, models.Waystation{}, err
	}
	if name == "" {
		name = fmt.Sprintf("From: %s:%s", mark.Name, cur.ID)
	}
	child, err := s.engine.Create(name)
	if err != nil {
		return models.Waystation{}, models.Waystation{}, err
	}
	child, err = s.commit(ctx, notify.Event{Kind: notify.NewWaystation, Waystation: child})
	if err != nil {
		return models.Waystation{}, models.Waystation{}, err
	}

	parent, err := s.addResource(ctx, index, models.ResourceWaystation, child.ID, func(models.Mark) string {
		return name
	})
	if err != nil {
		return models.Waystation{}, models.Waystation{}, err
	}
	if open {
		if err := s.docs.SaveCurrent(child); err != nil {
			return models.Waystation{}, models.Waystation{}, err
		}
	}
	return parent, child, nil
}

// RemoveResource drops every resource named name from the mark at index.
func (s *Service) RemoveResource(ctx context.Context, index int, name string) (models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, index)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err := s.engine.RemoveResourceByName(cur, mark, name)
	if err != nil {
		return models.Waystation{}, err
	}
	edited := markByID(w, mark.ID)
	return s.commit(ctx, notify.Event{Kind: notify.EditResource, Waystation: w, Mark: &edited})
}

func (s *Service) addResource(ctx context.Context, index int, t models.ResourceType, body string, name func(models.Mark) string) (models.Waystation, error) {
	cur, mark, err := s.markAt(ctx, index)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err := s.engine.NewResource(cur, mark, t, body, name(mark))
	if err != nil {
		return models.Waystation{}, err
	}
	edited := markByID(w, mark.ID)
	ev := notify.Event{Kind: notify.NewResource, Waystation: w, Mark: &edited}
	if n := len(edited.Resources); n > 0 {
		res := edited.Resources[n-1]
		ev.Resource = &res
	}
	return s.commit(ctx, ev)
}

// markAt loads the current Waystation and the mark at index.
func (s *Service) markAt(ctx context.Context, index int) (models.Waystation, models.Mark, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return models.Waystation{}, models.Mark{}, err
	}
	mark, ok := waystation.MarkAt(cur, index)
	if !ok {
		return models.Waystation{}, models.Mark{}, fmt.Errorf("%w: %d", apperr.ErrInvalidIndex, index)
	}
	return cur, mark, nil
}

func markByID(w models.Waystation, id string) models.Mark {
	if m, ok := waystation.MarkAt(w, waystation.FindMark(w, id)); ok {
		return m
	}
	return models.Mark{}
}
