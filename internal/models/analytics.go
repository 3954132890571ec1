package models

// StatusCount is one row of a GROUP BY status aggregate.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// LedgerTotals aggregates wallet movements across all students.
type LedgerTotals struct {
	Recharged    int64 `db:"recharged" json:"recharged"`
	Spent        int64 `db:"spent" json:"spent"`
	Transactions int   `db:"transactions" json:"transactions"`
}

// UniversityDemand counts applications per university.
type UniversityDemand struct {
	UniversityID   string `db:"university_id" json:"universityId"`
	UniversityName string `db:"university_name" json:"universityName"`
	Applications   int    `db:"applications" json:"applications"`
}
