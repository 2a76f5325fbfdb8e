package models

import "time"

// User is the local account record an external identity resolves to.
// A user may accumulate a link per supported provider over time, but a
// single login only ever touches the link for the provider it came through.
type User struct {
	ID              string     `bson:"_id,omitempty" json:"id"`
	GoogleID        string     `bson:"googleId,omitempty" json:"googleId,omitempty"`
	GithubID        string     `bson:"githubId,omitempty" json:"githubId,omitempty"`
	Email           string     `bson:"email" json:"email"`
	Name            string     `bson:"name" json:"name"`
	Photo           string     `bson:"photo,omitempty" json:"photo,omitempty"`
	EmailVerifiedAt *time.Time `bson:"emailVerifiedAt,omitempty" json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"updatedAt"`
}
