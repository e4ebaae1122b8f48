package db

import "gorm.io/gorm"

// LockSuffix returns the row-locking clause appended to raw SELECTs that
// must hold their rows until commit. SQLite serializes writers with a
// database-level lock and rejects FOR UPDATE, so the clause is elided there;
// the coordinator still gets all-or-nothing semantics from the single writer.
func LockSuffix(tx *gorm.DB) string {
	switch tx.Dialector.Name() {
	case "sqlite", "sqlite3":
		return ""
	default:
		return " FOR UPDATE"
	}
}
