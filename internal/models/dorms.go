package models

// Dorms lists the dormitory numbers served by the maintenance service.
var Dorms = []string{
	"3", "4", "5", "6", "7", "8",
	"11", "12", "13", "14", "15", "16",
	"17", "18", "19", "20", "21", "22",
}

// DormResponsibles maps a dorm number to the Telegram handle of its
// responsible party, when one is assigned.
var DormResponsibles = map[string]string{
	"4":  "@StromenkoElena",
	"6":  "@natalivinter",
	"8":  "@Hadia1961_73",
	"12": "@Vetka2606",
	"14": "@ElenaShevch",
	"15": "@LarysaGora",
	"18": "@yanashopiak",
	"19": "@IrinaPostolatieva",
	"20": "@puzirna",
}

func ValidDorm(d string) bool {
	for _, dorm := range Dorms {
		if dorm == d {
			return true
		}
	}
	return false
}
