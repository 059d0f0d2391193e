package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"subtrack/internal/core"
)

const reminderLogBOM = "\xef\xbb\xbf"

// reminderLogRetentionDays is how long sent-reminder entries are kept.
const reminderLogRetentionDays = 30

type reminderLogEntry struct {
	Name      string
	SentDate  core.Date
	DaysLeft  int
	EmailSent bool
}

// loadReminderLog reads the sent-reminder log. A missing or unreadable
// file yields an empty log so reminders degrade to at-most-once per run
// rather than failing.
func loadReminderLog(path string) []reminderLogEntry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil || len(records) < 2 {
		return nil
	}
	records[0][0] = strings.TrimPrefix(records[0][0], reminderLogBOM)

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var entries []reminderLogEntry
	for _, row := range records[1:] {
		entry := reminderLogEntry{}
		if i, ok := col["subscription_name"]; ok && i < len(row) {
			entry.Name = row[i]
		}
		if i, ok := col["sent_date"]; ok && i < len(row) {
			if d, err := core.ParseDate(row[i]); err == nil {
				entry.SentDate = d
			}
		}
		if i, ok := col["days_remaining"]; ok && i < len(row) {
			entry.DaysLeft, _ = strconv.Atoi(strings.TrimSpace(row[i]))
		}
		if i, ok := col["email_sent"]; ok && i < len(row) {
			entry.EmailSent = strings.EqualFold(strings.TrimSpace(row[i]), "TRUE")
		}
		if entry.Name == "" || entry.SentDate.IsZero() {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func saveReminderLog(path string, entries []reminderLogEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create reminder log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(reminderLogBOM); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"subscription_name", "sent_date", "days_remaining", "email_sent"}); err != nil {
		return err
	}
	for _, e := range entries {
		sent := "FALSE"
		if e.EmailSent {
			sent = "TRUE"
		}
		if err := w.Write([]string{e.Name, e.SentDate.String(), strconv.Itoa(e.DaysLeft), sent}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// alreadySentToday reports whether a reminder for the subscription went
// out today.
func alreadySentToday(entries []reminderLogEntry, name string, today core.Date) bool {
	for _, e := range entries {
		if e.Name == name && e.EmailSent && e.SentDate.String() == today.String() {
			return true
		}
	}
	return false
}

// pruneReminderLog drops entries older than the retention window.
func pruneReminderLog(entries []reminderLogEntry, today core.Date) []reminderLogEntry {
	var kept []reminderLogEntry
	for _, e := range entries {
		if e.SentDate.DaysUntil(today) <= reminderLogRetentionDays {
			kept = append(kept, e)
		}
	}
	return kept
}
