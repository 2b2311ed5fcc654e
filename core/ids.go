// Package core defines the identifier types shared across the index.
package core

// ItemId identifies an indexed item. Valid values satisfy 0 <= id <= max_id
// for a given loaded Index.
type ItemId uint32

// MaxItemId is the maximum representable ItemId.
const MaxItemId = ^ItemId(0)

// TagId identifies a tag slot. Valid values satisfy 0 <= id < tag_count
// for a given loaded Index; every integer in that range is a valid slot,
// though many resolve to an Empty entry.
type TagId uint32

// MaxTagId is the maximum representable TagId.
const MaxTagId = ^TagId(0)
