/*
Fractions contract is a fractional property ownership ledger deployed in an
N3 compatible chain.

Every minted token represents a single real-world property. The token itself
is an indivisible collectible issued to the contract administrator, while its
economic value is split into a fixed number of fractions recorded at mint.
The contract account acts as the ledger counterparty: it holds all unsold
fractions, receives GAS from purchases and pays GAS out for buy-backs. All
fractions of all tokens share a single administrator-controlled price.

Purchases can be made in two ways. The pull way is the buyFraction method:
the contract collects payment from the witnessed buyer via the native GAS
contract. The push way is a plain GAS transfer to the contract carrying
[tokenID, amount] attachment data, which is handled by onNEP17Payment. Any
other incoming payment is rejected, which aborts the transfer.

# Contract storage scheme

  | Key                           | Value      | Description                             |
  |-------------------------------|------------|-----------------------------------------|
  | 0x01 + token ID               | int        | fixed fractional supply of the token    |
  | 0x02 + token ID + holder      | int        | fractions of the token held by holder   |
  | 0x03 + token ID               | ByteArray  | serialized token metadata               |
  | 0x04 + token ID               | Hash160    | collectible owner of the token          |
  | 0x10                          | Hash160    | contract administrator                  |
  | 0x11                          | int        | price of a single fraction              |
  | 0x12                          | int        | token ID to be assigned by next mint    |

Token IDs in storage keys are encoded as decimal strings.

# Contract notifications

Mint notification. Produced when the administrator creates a new property
token.

  Mint:
    - name: tokenId
      type: Integer
    - name: owner
      type: Hash160
    - name: fractions
      type: Integer

FractionsPurchased notification. Produced when fractions are sold from the
ledger to a buyer, via either purchase way.

  FractionsPurchased:
    - name: tokenId
      type: Integer
    - name: buyer
      type: Hash160
    - name: amount
      type: Integer
    - name: payment
      type: Integer

FractionsSold notification. Produced when the ledger buys fractions back
from a holder.

  FractionsSold:
    - name: tokenId
      type: Integer
    - name: seller
      type: Hash160
    - name: amount
      type: Integer
    - name: payout
      type: Integer

PriceChanged notification. Produced when the administrator overwrites the
fraction price.

  PriceChanged:
    - name: price
      type: Integer

MetadataUpdated notification. Produced when the administrator overwrites
token metadata.

  MetadataUpdated:
    - name: tokenId
      type: Integer
*/
package fractions
