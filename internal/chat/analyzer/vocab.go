package analyzer

// The vocabularies below are immutable configuration data. Category and brand
// tables are ordered slices: resolution takes the first entry whose any
// synonym matches, in declaration order.

var greetingWords = []string{
	"hi", "hello", "hey", "howdy", "jambo", "habari", "mambo",
}

var greetingPhrases = []string{
	"good morning", "good afternoon", "good evening",
}

var helpWords = []string{
	"help", "assist", "support", "confused", "stuck",
}

var helpPhrases = []string{
	"how do i", "how does this work", "what can you do",
}

type categoryEntry struct {
	name     string
	synonyms []string
}

var categoryTable = []categoryEntry{
	{"laptop", []string{"laptop", "notebook", "macbook", "chromebook", "ultrabook", "hp", "dell", "lenovo"}},
	{"smartphone", []string{"smartphone", "iphone", "android", "mobile phone", "phone"}},
	{"television", []string{"television", "smart tv", "tv", "oled", "lcd"}},
	{"audio", []string{"headphone", "earbud", "earphone", "speaker", "soundbar", "woofer"}},
	{"camera", []string{"camera", "dslr", "mirrorless", "camcorder"}},
	{"tablet", []string{"tablet", "ipad"}},
	{"gaming", []string{"playstation", "xbox", "nintendo", "console", "gaming"}},
	{"appliance", []string{"fridge", "refrigerator", "cooker", "microwave", "blender", "washing machine", "kettle"}},
	{"fashion", []string{"shoe", "sneaker", "shirt", "dress", "trouser", "jacket", "handbag"}},
	{"furniture", []string{"sofa", "couch", "mattress", "wardrobe", "desk", "dining table"}},
}

type brandEntry struct {
	name     string
	keywords []string
}

var brandTable = []brandEntry{
	{"hp", []string{"hp", "hewlett"}},
	{"dell", []string{"dell"}},
	{"lenovo", []string{"lenovo", "thinkpad"}},
	{"apple", []string{"apple", "iphone", "macbook", "ipad"}},
	{"samsung", []string{"samsung", "galaxy"}},
	{"sony", []string{"sony"}},
	{"lg", []string{"lg"}},
	{"tecno", []string{"tecno"}},
	{"infinix", []string{"infinix"}},
	{"nike", []string{"nike"}},
	{"adidas", []string{"adidas"}},
}

var productNouns = []string{
	"laptop", "smartphone", "phone", "television", "tv", "tablet", "camera",
	"headphones", "speaker", "fridge", "cooker", "microwave", "blender",
	"shoes", "shirt", "dress", "sofa", "mattress", "watch", "charger", "bag",
}

// shoppingKeywords is the coarse recall-oriented vocabulary used by the
// orchestrator's rescan gate. It is deliberately looser than the signal
// tables above; together with them it forms a superset of every signal the
// analyzer itself recognizes.
var shoppingKeywords = []string{
	"buy", "purchase", "shop", "order", "price", "cost", "cheap",
	"affordable", "budget", "deal", "offer", "sale", "discount", "stock",
	"product", "item", "brand", "looking for", "need", "want", "search",
	"find", "show me", "recommend", "deliver",
}
