package catalog

// protestantCanon holds the 66 books in alphabetical order of their names.
// Indices into this table are part of the date-to-verse scheme, so the
// order must never change.
var protestantCanon = []Book{
	{"1chronicles", 29, "1Chr", "1 Chronicles"},
	{"1corinthians", 16, "1Cor", "1 Corinthians"},
	{"1john", 5, "1John", "1 John"},
	{"1kings", 22, "1Kgs", "1 Kings"},
	{"1peter", 5, "1Pet", "1 Peter"},
	{"1samuel", 31, "1Sam", "1 Samuel"},
	{"1thessalonians", 5, "1Thess", "1 Thessalonians"},
	{"1timothy", 6, "1Tim", "1 Timothy"},
	{"2chronicles", 36, "2Chr", "2 Chronicles"},
	{"2corinthians", 13, "2Cor", "2 Corinthians"},
	{"2john", 1, "2John", "2 John"},
	{"2kings", 25, "2Kgs", "2 Kings"},
	{"2peter", 3, "2Pet", "2 Peter"},
	{"2samuel", 24, "2Sam", "2 Samuel"},
	{"2thessalonians", 3, "2Thess", "2 Thessalonians"},
	{"2timothy", 4, "2Tim", "2 Timothy"},
	{"3john", 1, "3John", "3 John"},
	{"acts", 28, "Acts", "Acts"},
	{"amos", 9, "Amos", "Amos"},
	{"colossians", 4, "Col", "Colossians"},
	{"daniel", 12, "Dan", "Daniel"},
	{"deuteronomy", 34, "Deut", "Deuteronomy"},
	{"ecclesiastes", 12, "Eccl", "Ecclesiastes"},
	{"ephesians", 6, "Eph", "Ephesians"},
	{"esther", 10, "Esth", "Esther"},
	{"exodus", 40, "Exod", "Exodus"},
	{"ezekiel", 48, "Ezek", "Ezekiel"},
	{"ezra", 10, "Ezra", "Ezra"},
	{"galatians", 6, "Gal", "Galatians"},
	{"genesis", 50, "Gen", "Genesis"},
	{"habakkuk", 3, "Hab", "Habakkuk"},
	{"haggai", 2, "Hag", "Haggai"},
	{"hebrews", 13, "Heb", "Hebrews"},
	{"hosea", 14, "Hos", "Hosea"},
	{"isaiah", 66, "Isa", "Isaiah"},
	{"james", 5, "Jas", "James"},
	{"jeremiah", 52, "Jer", "Jeremiah"},
	{"job", 42, "Job", "Job"},
	{"joel", 3, "Joel", "Joel"},
	{"john", 21, "John", "John"},
	{"jonah", 4, "Jonah", "Jonah"},
	{"joshua", 24, "Josh", "Joshua"},
	{"jude", 1, "Jude", "Jude"},
	{"judges", 21, "Judg", "Judges"},
	{"lamentations", 5, "Lam", "Lamentations"},
	{"leviticus", 27, "Lev", "Leviticus"},
	{"luke", 24, "Luke", "Luke"},
	{"malachi", 4, "Mal", "Malachi"},
	{"mark", 16, "Mark", "Mark"},
	{"matthew", 28, "Matt", "Matthew"},
	{"micah", 7, "Mic", "Micah"},
	{"nahum", 3, "Nah", "Nahum"},
	{"nehemiah", 13, "Neh", "Nehemiah"},
	{"numbers", 36, "Num", "Numbers"},
	{"obadiah", 1, "Obad", "Obadiah"},
	{"philemon", 1, "Phlm", "Philemon"},
	{"philippians", 4, "Phil", "Philippians"},
	{"proverbs", 31, "Prov", "Proverbs"},
	{"psalms", 150, "Ps", "Psalms"},
	{"revelation", 22, "Rev", "Revelation"},
	{"romans", 16, "Rom", "Romans"},
	{"ruth", 4, "Ruth", "Ruth"},
	{"songofsolomon", 8, "Song", "Song of Solomon"},
	{"titus", 3, "Titus", "Titus"},
	{"zechariah", 14, "Zech", "Zechariah"},
	{"zephaniah", 3, "Zeph", "Zephaniah"},
}

var defaultCatalog = MustNew(protestantCanon)

// Default returns the 66-book catalog.
func Default() *Catalog {
	return defaultCatalog
}
