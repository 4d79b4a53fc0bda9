/*
Package tc3 implements the Tencent Cloud TC3-HMAC-SHA256 request signer. See
https://cloud.tencent.com/document/api/213/30654 for the authoritative
description of the algorithm.

The scheme is summarized here.

Step 1: build a canonical request string in the format
`<METHOD>\n<URI>\n<QUERY>\n<HEADERS>\n<SIGNED_HEADERS>\n<PAYLOAD_HASH>`.

  - `METHOD`: HTTP method in upper case. Always POST for this API family.
  - `URI`: the URL path component. Tencent Cloud APIs use `/`.
  - `QUERY`: the URL query component. Empty for POST requests.
  - `HEADERS`: one `name:value` line per signed header, names lower-cased and
    sorted, each line terminated by `\n`. Only `content-type` and `host` take
    part in the signature; any other header must not affect it. The
    content-type value has to match what is actually sent byte-for-byte,
    charset suffix included.
  - `SIGNED_HEADERS`: semicolon-delimited list of the signed header names,
    lower-cased and sorted, i.e. `content-type;host`.
  - `PAYLOAD_HASH`: `hex(sha256(BODY))` over the exact bytes transmitted.

Step 2: compute the string to sign:
`TC3-HMAC-SHA256\n<TIMESTAMP>\n<DATE>/<SERVICE>/tc3_request\n<hex(sha256(CANON))>`,
where `TIMESTAMP` is unix seconds and `DATE` is its UTC `YYYY-MM-DD` rendering.
The same timestamp must be sent in the `X-TC-Timestamp` header; signing over
one value and sending another invalidates the signature.

Step 3: derive the signing key per pseudo code:

	secretDate    = hmacsha256("TC3"+SecretKey, Date)
	secretService = hmacsha256(secretDate, Service)
	secretSigning = hmacsha256(secretService, "tc3_request")
	signature     = hex(hmacsha256(secretSigning, StringToSign))

Step 4: assemble the header value
`Authorization: TC3-HMAC-SHA256 Credential=<SecretId>/<DATE>/<SERVICE>/tc3_request, SignedHeaders=content-type;host, Signature=<signature>`.
*/
package tc3
