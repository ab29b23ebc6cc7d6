// Package models contains the GORM persistence models for the billing
// domain. Models are kept separate from domain entities so the database
// schema can evolve without leaking persistence concerns into the domain.
// Each model knows how to convert to and from its domain counterpart.
package models
