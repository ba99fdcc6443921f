package grade

// Aggregate groups grades by subject in first-seen order, keeping the grades in input order.
func Aggregate(grades []Grade) []Subject {
	subjects := make([]Subject, 0)
	index := make(map[string]int)
	for _, g := range grades {
		i, ok := index[g.Subject]
		if !ok {
			i = len(subjects)
			index[g.Subject] = i
			subjects = append(subjects, Subject{Name: g.Subject, Grades: make([]Grade, 0, 4)})
		}
		subjects[i].Grades = append(subjects[i].Grades, g)
	}
	for i := range subjects {
		subjects[i].Average = Average(subjects[i].Grades)
	}
	return subjects
}

// Flatten lists the grades of all subjects in subject order.
func Flatten(subjects []Subject) []Grade {
	var n int
	for _, s := range subjects {
		n += len(s.Grades)
	}
	grades := make([]Grade, 0, n)
	for _, s := range subjects {
		grades = append(grades, s.Grades...)
	}
	return grades
}
