package repository

import (
	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/sequence"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	postgresRepo "github.com/numera/numera/internal/repository/postgres"
)

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return postgresRepo.NewSequenceRepository(db, logger)
}

func NewDocumentRepository(db *postgres.DB, logger *logger.Logger) document.Repository {
	return postgresRepo.NewDocumentRepository(db, logger)
}
