package recurrence

// RequiresRegeneration reports whether moving from old to new changes which
// instances exist or when they happen. Location and other display metadata
// never require regeneration.
func RequiresRegeneration(old, new Rule) bool {
	if old.Weekdays != new.Weekdays {
		return true
	}
	if old.Start != new.Start || old.End != new.End {
		return true
	}
	if dateKey(old.SemesterStart) != dateKey(new.SemesterStart) {
		return true
	}
	return dateKey(old.SemesterEnd) != dateKey(new.SemesterEnd)
}

// PartitionOrphans splits exceptions into those that still target an
// instance of rule and those whose date the rule no longer produces.
func PartitionOrphans(rule Rule, exceptions []Exception) (kept, orphaned []Exception) {
	for _, ex := range exceptions {
		if rule.Occurs(ex.Date) {
			kept = append(kept, ex)
		} else {
			orphaned = append(orphaned, ex)
		}
	}
	return kept, orphaned
}
