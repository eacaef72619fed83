package lexicon

// builtinVersion tags the curated tables below. Bump it whenever entries
// change so persisted analyses can be traced to the lexicon that scored them.
const builtinVersion = "2025.2"

// Curated for Israeli real-estate sales conversations. Phrases match as
// normalized substrings, so inflected forms with prefixes (בנכס, התקציב)
// still hit. Patterns cover open classes a literal list cannot.
var builtinCategories = map[Category][]EntrySpec{
	CategoryUrgency: {
		{Phrase: "דחוף"},          // urgent
		{Phrase: "בהקדם"},         // as soon as possible
		{Phrase: "כמה שיותר מהר"}, // as fast as possible
		{Phrase: "מיידי"},         // immediate
		{Phrase: "עוד השבוע"},     // within the week
		{Phrase: "לסגור החודש"},   // close this month
		{Phrase: "לוחץ לי"},       // pressing for me
	},
	CategoryBudget: {
		{Phrase: "תקציב"},    // budget
		{Phrase: "מימון"},    // financing
		{Phrase: "משכנתא"},   // mortgage
		{Phrase: "הון עצמי"}, // equity
		{Phrase: "מזומן"},    // cash
		{Pattern: `\d+\s+אלף\s+(?:שקל|ש"ח)`},              // N thousand shekels
		{Pattern: `\d+(?:\.\d+)?\s+מיליון\s+(?:שקל|ש"ח)`}, // N million shekels
	},
	CategoryInterest: {
		{Phrase: "מעוניין"},           // interested
		{Phrase: "מתעניין"},           // inquiring
		{Phrase: "מחפש דירה"},         // looking for an apartment
		{Phrase: "מחפש נכס"},          // looking for a property
		{Phrase: "נכס בתל אביב"},      // property in Tel Aviv
		{Phrase: "נכס להשקעה"},        // investment property
		{Phrase: "רוצה לראות את הנכס"}, // wants a viewing
	},
	CategoryEngagement: {
		{Phrase: "ספר לי עוד"},       // tell me more
		{Phrase: "אשמח לשמוע"},       // happy to hear
		{Phrase: "יש לי שאלה"},       // I have a question
		{Phrase: "מתי אפשר להיפגש"},  // when can we meet
		{Phrase: "נשמע טוב"},         // sounds good
		{Phrase: "אפשר לקבל פרטים"},  // can I get details
	},
}

var builtinObjections = []EntrySpec{
	{Phrase: "יקר מדי"},     // too expensive
	{Phrase: "לא מעוניין"},  // not interested
	{Phrase: "צריך לחשוב"},  // need to think
	{Phrase: "לא בטוח"},     // not sure
	{Phrase: "אין לי זמן"},  // no time
	{Phrase: "לא רלוונטי"},  // not relevant
	{Phrase: "אחשוב על זה"}, // I'll think about it
}
