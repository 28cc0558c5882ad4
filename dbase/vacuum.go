package dbase

import "os"

// Vacuum rewrites the table to a fresh DBF (and DBT, if memo fields are
// present) containing only live records, discarding tombstones and
// reclaiming memo blocks orphaned by rewritten/rolled-back fields, per
// spec §4.3. The temporary pair is built alongside the original and
// swapped in on success; any failure leaves the original table untouched
// and removes the temporary files.
func (t *Table) Vacuum() error {
	tempPath := t.path + ".vacuum.tmp"
	tempMemoPath := siblingPath(tempPath, ".dbt")
	defer os.Remove(tempPath)
	defer os.Remove(tempMemoPath)

	temp, err := Create(&Config{Filename: tempPath, Encoding: t.encoding, ErrorHandler: t.config.ErrorHandler})
	if err != nil {
		return newError("vacuum-1", err)
	}
	for _, c := range t.columns {
		if err := temp.AddColumn(c.RawName(), c.Type(), c.Length(), c.Decimals()); err != nil {
			temp.Close()
			return newError("vacuum-2", err)
		}
	}
	copyErr := t.ForEach(func(record Record) error {
		values := make([]interface{}, len(temp.columns))
		for i, c := range temp.columns {
			values[i] = record[c.RawName()]
		}
		return temp.Insert(values)
	})
	if copyErr != nil {
		temp.Close()
		return newError("vacuum-3", copyErr)
	}
	if err := temp.Close(); err != nil {
		return newError("vacuum-4", err)
	}

	if t.memo.isOpen() {
		if err := t.memo.handle.Close(); err != nil {
			return newError("vacuum-5", err)
		}
	}
	if err := t.file.Close(); err != nil {
		return newError("vacuum-6", err)
	}

	if err := os.Rename(tempPath, t.path); err != nil {
		return newError("vacuum-7", err)
	}
	memoPath := siblingPath(t.path, ".dbt")
	if exists(tempMemoPath) {
		if err := os.Rename(tempMemoPath, memoPath); err != nil {
			return newError("vacuum-8", err)
		}
	} else if exists(memoPath) {
		os.Remove(memoPath)
	}

	reopened, err := Open(t.config)
	if err != nil {
		return newError("vacuum-9", err)
	}
	*t = *reopened
	return nil
}
