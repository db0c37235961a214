package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// operator's access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// TimestampField is the document field that holds a record's creation time.
const TimestampField = "timestamp"
