package model

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind is the fixed allow-list of media entity types. Feed ids of the
// media groups are composite "<kind>-<id>" strings; anything outside this
// enum fails closed at the query boundary.
type MediaKind string

const (
	MediaKindAnime MediaKind = "Anime"
	MediaKindManga MediaKind = "Manga"
	MediaKindDrama MediaKind = "Drama"
)

var mediaKinds = map[string]MediaKind{
	"Anime": MediaKindAnime,
	"Manga": MediaKindManga,
	"Drama": MediaKindDrama,
}

// ParseMediaKind resolves a media type name against the fixed enum. This
// replaces runtime type-name resolution with an explicit dispatch table.
func ParseMediaKind(s string) (MediaKind, bool) {
	kind, ok := mediaKinds[s]
	return kind, ok
}

// MediaRef is a tagged reference to one concrete media entity.
type MediaRef struct {
	Kind MediaKind `json:"kind"`
	ID   string    `json:"id"`
}

func (r MediaRef) Key() string {
	return fmt.Sprintf("%s-%s", r.Kind, r.ID)
}

// ParseMediaRef parses a composite "<kind>-<id>" feed id. The id part may
// itself contain dashes, only the first dash splits.
func ParseMediaRef(composite string) (MediaRef, bool) {
	parts := strings.SplitN(composite, "-", 2)
	if len(parts) != 2 {
		return MediaRef{}, false
	}
	kind, ok := ParseMediaKind(parts[0])
	if !ok || parts[1] == "" {
		return MediaRef{}, false
	}
	return MediaRef{Kind: kind, ID: parts[1]}, true
}

// UnitKind tags a spoilable sub-unit of a media entity.
type UnitKind string

const (
	UnitKindEpisode UnitKind = "Episode"
	UnitKindChapter UnitKind = "Chapter"
)

// UnitRef is a tagged reference to one spoilable unit, distinct from the
// media entity that owns it.
type UnitRef struct {
	Kind UnitKind `json:"kind"`
	ID   string   `json:"id"`
}

func (r UnitRef) Key() string {
	return fmt.Sprintf("%s-%s", r.Kind, r.ID)
}

/*

Media is a data model for one media entity (anime, manga or drama)

Kind: which concrete media type this row is, part of the primary key
Id: entity id, unique within a kind
Title: canonical display title
Nsfw: whether this entity is adult-only, forces nsfw onto referencing posts

*/

type Media struct {
	Kind      MediaKind `gorm:"primaryKey"`
	Id        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"<-:create"`
	Title     string
	Nsfw      bool
}

func (m Media) Ref() MediaRef {
	return MediaRef{Kind: m.Kind, ID: m.Id}
}
