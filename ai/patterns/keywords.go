package patterns

// Weighted keyword sets for purchase-intent scoring. Phrases cover both formal
// English and Nigerian Pidgin registers since sellers serve both.

var purchaseKeywords = []string{
	"i want to buy",
	"i wan buy",
	"i will buy",
	"i go buy",
	"i want to order",
	"make i order",
	"i wan order",
	"i want to purchase",
	"how much",
	"how much e be",
	"wetin be the price",
	"send me price",
	"price abeg",
	"can i get",
	"i dey interested",
	"i'm interested",
	"i am interested",
	"do you have",
	"una get",
	"is it available",
	"e dey available",
}

var quantityKeywords = []string{
	"pieces",
	"piece",
	"pcs",
	"bags",
	"bag",
	"cartons",
	"carton",
	"packs",
	"pack",
	"dozen",
	"units",
	"sets",
	"pairs",
}

var paymentKeywords = []string{
	"transfer",
	"payment",
	"pay now",
	"i go pay",
	"i don pay",
	"i have paid",
	"account number",
	"send account",
	"send your account",
	"bank details",
	"pos",
	"card",
	"ussd",
	"receipt",
}

var deliveryKeywords = []string{
	"deliver",
	"delivery",
	"send to",
	"send am to",
	"ship",
	"shipping",
	"waybill",
	"dispatch",
	"rider",
	"pick up",
	"pickup",
	"my address",
	"my location",
	"bring am",
}

var urgencyKeywords = []string{
	"urgent",
	"urgently",
	"asap",
	"today",
	"now now",
	"sharp sharp",
	"immediately",
	"before weekend",
	"right now",
}

var negotiationKeywords = []string{
	"discount",
	"last price",
	"final price",
	"reduce",
	"lower the price",
	"abeg reduce",
	"too cost",
	"too expensive",
	"e too much",
	"lets negotiate",
	"best price",
	"wholesale price",
}

var complaintKeywords = []string{
	"refund",
	"not working",
	"no dey work",
	"damaged",
	"fake",
	"disappointed",
	"wahala",
	"problem with",
	"complain",
	"never received",
	"didn't receive",
	"i no see am",
	"scam",
	"wrong item",
}

var supportKeywords = []string{
	"help me",
	"how do i",
	"how to use",
	"how e dey work",
	"instructions",
	"manual",
	"guide",
	"setup",
	"warranty",
	"size chart",
}

var cancellationKeywords = []string{
	"cancel",
	"no longer interested",
	"changed my mind",
	"forget it",
	"don't want again",
	"i no want again",
	"abort the order",
}

var followUpKeywords = []string{
	"any update",
	"still waiting",
	"have you sent",
	"you don send am",
	"following up",
	"status of my order",
	"where my order dey",
	"when will it arrive",
}

var positiveEmojis = []string{
	"🔥",
	"❤️",
	"😍",
	"👍",
	"🙏",
	"💯",
	"🤝",
}

// Closed place-name list for delivery-address extraction.
var knownPlaces = []string{
	"lekki",
	"ikeja",
	"yaba",
	"surulere",
	"ajah",
	"ikorodu",
	"victoria island",
	"festac",
	"gbagada",
	"magodo",
	"maryland",
	"ogba",
	"agege",
	"ojota",
	"apapa",
	"ikoyi",
	"abuja",
	"ibadan",
	"port harcourt",
	"kano",
	"enugu",
	"benin city",
	"kaduna",
	"abeokuta",
}

// Per-category score weights.
const (
	weightPurchase    = 3.0
	weightQuantity    = 1.5
	weightPayment     = 2.0
	weightDelivery    = 1.5
	weightUrgency     = 1.0
	weightNegotiation = 1.0
	weightEmoji       = 0.5
)

const (
	purchaseScoreThreshold = 3.0
	confidenceNormalizer   = 8.0
)
