package dialog

// ReplyKind discriminates what the channel layer should do with a reply.
type ReplyKind int

const (
	// ReplyNone means nothing should be sent; the engine already pushed a
	// reply through a richer channel primitive.
	ReplyNone ReplyKind = iota
	// ReplyText is a plain outbound message.
	ReplyText
	// ReplyFAQ asks the channel layer to run the text through the FAQ
	// responder and send its answer verbatim.
	ReplyFAQ
	// ReplyConfirm is the booking summary question. Channels that support
	// quick replies should attach yes/no buttons to it.
	ReplyConfirm
)

// Reply is the outcome of handling one inbound message.
type Reply struct {
	Kind ReplyKind
	Text string
}

func textReply(text string) Reply { return Reply{Kind: ReplyText, Text: text} }

func faqDelegate(question string) Reply { return Reply{Kind: ReplyFAQ, Text: question} }

func confirmReply(text string) Reply { return Reply{Kind: ReplyConfirm, Text: text} }

func noReply() Reply { return Reply{Kind: ReplyNone} }
