// Package main. Repository katmanı başlatma.
package main

import (
	"database/sql"

	"github.com/akinalp/teamchat/repository"
)

// Repositories, repository instance'larını tutan container struct.
type Repositories struct {
	Message repository.MessageRepository
	Team    repository.TeamRepository
}

// initRepositories, SQLite implementasyonlarını oluşturur.
func initRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Message: repository.NewSQLiteMessageRepo(db),
		Team:    repository.NewSQLiteTeamRepo(db),
	}
}
