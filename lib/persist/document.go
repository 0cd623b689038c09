package persist

import (
	"time"

	"github.com/ValentinKolb/rsnDB/lib/db"
)

// DocumentFormat names the layout of the serialized document.
const DocumentFormat = "rsndb/1"

// Document is everything a store file holds: the current state and the
// named checkpoints. Undo history is session-local and never saved.
type Document struct {
	Format      string           `bson:"format"`
	SavedAt     time.Time        `bson:"saved_at"`
	Session     string           `bson:"session"`
	State       db.Dump          `bson:"state"`
	Checkpoints []CheckpointDump `bson:"checkpoints"`
}

// CheckpointDump is a checkpoint with the full state it captured.
type CheckpointDump struct {
	Name      string    `bson:"name"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
	State     db.Dump   `bson:"state"`
}
