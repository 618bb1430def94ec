package models

// Subjects is the fixed set of study subjects doubts and notes are filed
// under. Forms reject anything outside this list.
var Subjects = []string{
	"DSA",
	"Web Development",
	"Mobile Development",
	"Machine Learning",
	"Core CS",
	"Aptitude",
	"Other",
}

func IsSubject(s string) bool {
	for _, v := range Subjects {
		if v == s {
			return true
		}
	}
	return false
}
