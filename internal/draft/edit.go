package draft

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mmynk/nbbang/internal/models"
)

var (
	ErrEmptyName       = errors.New("name is required")
	ErrDuplicateMember = errors.New("member already exists")
	ErrUnknownMember   = errors.New("no such member")
	ErrItemIndex       = errors.New("no such item")
)

// AddMember appends a member to the draft roster.
func AddMember(d *models.Draft, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if slices.Contains(d.Members, name) {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, name)
	}
	d.Members = append(d.Members, name)
	return nil
}

// RemoveMember drops a member and cascades: the name is stripped from every
// item's attendees, and items the member paid for are reassigned to the first
// remaining member. Items left without attendees are kept so validation can
// flag them.
func RemoveMember(d *models.Draft, name string) error {
	idx := slices.Index(d.Members, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	d.Members = slices.Delete(d.Members, idx, idx+1)

	replacement := ""
	if len(d.Members) > 0 {
		replacement = d.Members[0]
	}
	for i := range d.Items {
		item := &d.Items[i]
		item.Attendees = slices.DeleteFunc(item.Attendees, func(a string) bool { return a == name })
		if item.Payer == name {
			item.Payer = replacement
		}
	}
	return nil
}

// AddItem appends an item.
func AddItem(d *models.Draft, item models.DraftItem) {
	item.Name = strings.TrimSpace(item.Name)
	item.Attendees = append([]string{}, item.Attendees...)
	d.Items = append(d.Items, item)
}

// EditItem replaces the item at index.
func EditItem(d *models.Draft, index int, item models.DraftItem) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Attendees = append([]string{}, item.Attendees...)
	d.Items[index] = item
	return nil
}

// RemoveItem deletes the item at index.
func RemoveItem(d *models.Draft, index int) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	d.Items = slices.Delete(d.Items, index, index+1)
	return nil
}

// ToggleAttendee adds name to the item's attendees, or removes it when present.
// Attendees keep roster order.
func ToggleAttendee(d *models.Draft, index int, name string) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	if !slices.Contains(d.Members, name) {
		return fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}

	item := &d.Items[index]
	if slices.Contains(item.Attendees, name) {
		item.Attendees = slices.DeleteFunc(item.Attendees, func(a string) bool { return a == name })
		return nil
	}

	var ordered []string
	for _, m := range d.Members {
		if m == name || slices.Contains(item.Attendees, m) {
			ordered = append(ordered, m)
		}
	}
	item.Attendees = ordered
	return nil
}
