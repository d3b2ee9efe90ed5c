// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// PostStringLength is how many characters of the text String() shows.
const PostStringLength = 15

// Post represents a published entry in a feed.
type Post struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Text string `gorm:"type:text;not null" json:"text"`
	// PubDate is assigned on insert and never written again.
	PubDate  time.Time `gorm:"<-:create;autoCreateTime;not null;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id,omitempty"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image and Thumbnail are paths relative to the media root.
	Image     string `gorm:"size:255" json:"image,omitempty"`
	Thumbnail string `gorm:"size:255" json:"thumbnail,omitempty"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

func (p Post) String() string {
	return Truncate(p.Text, PostStringLength)
}

// Comment is a reader's reply attached to a post.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	PostID   uint      `gorm:"not null;index" json:"post_id"`
	Post     *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"<-:create;autoCreateTime;not null" json:"created"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

func (c Comment) String() string {
	return Truncate(c.Text, PostStringLength)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
